package space

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileSpec is the structured YAML/JSON on-disk shape of a ConfigSpace.
type fileSpec struct {
	Parameters []*Parameter `yaml:"parameters"`
}

// LoadConfigSpace reads a configuration space definition from path,
// auto-detecting format: a ".pcs"/".pcs.txt"-suffixed (or content-sniffed)
// file is parsed with the PCS-new reader, everything else as structured
// YAML/JSON (JSON is valid YAML, so one parser serves both).
func LoadConfigSpace(path string) (*ConfigSpace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("space: reading %s: %w", path, err)
	}
	if looksLikePCS(path, data) {
		params, err := parsePCS(string(data))
		if err != nil {
			return nil, fmt.Errorf("space: parsing PCS file %s: %w", path, err)
		}
		return New(params)
	}
	var fs fileSpec
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("space: parsing %s: %w", path, err)
	}
	return New(fs.Parameters)
}

func looksLikePCS(path string, data []byte) bool {
	if strings.HasSuffix(path, ".pcs") || strings.HasSuffix(path, ".pcs.txt") {
		return true
	}
	trimmed := strings.TrimSpace(string(data))
	return strings.HasPrefix(trimmed, "#") == false &&
		(strings.Contains(trimmed, "real [") || strings.Contains(trimmed, "integer [") || strings.Contains(trimmed, "categorical {"))
}

// PCS-new grammar, the ConfigSpace project's plain-text parameter format:
//
//	name real [lower, upper] [default]log
//	name integer [lower, upper] [default]
//	name categorical {a, b, c} [default]
//	name | condition-parent in {value, value}   (conditional clause)
var (
	reReal = regexp.MustCompile(`^(\S+)\s+real\s+\[\s*([^,\]]+)\s*,\s*([^,\]]+)\s*\]\s*\[\s*([^\]]+)\s*\](log)?`)
	reInt  = regexp.MustCompile(`^(\S+)\s+integer\s+\[\s*([^,\]]+)\s*,\s*([^,\]]+)\s*\]\s*\[\s*([^\]]+)\s*\]`)
	reCat  = regexp.MustCompile(`^(\S+)\s+categorical\s+\{([^}]+)\}\s*\[\s*([^\]]+)\s*\]`)
	reCond = regexp.MustCompile(`^(\S+)\s*\|\s*(\S+)\s+in\s+\{([^}]+)\}`)
)

func parsePCS(text string) ([]*Parameter, error) {
	byName := make(map[string]*Parameter)
	var order []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case reCond.MatchString(line):
			m := reCond.FindStringSubmatch(line)
			p, ok := byName[m[1]]
			if !ok {
				return nil, fmt.Errorf("condition clause for unknown parameter %q", m[1])
			}
			p.Condition = &Condition{Parent: m[2], Values: splitCSV(m[3])}
		case reReal.MatchString(line):
			m := reReal.FindStringSubmatch(line)
			lo, err := strconv.ParseFloat(strings.TrimSpace(m[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: lower bound: %w", m[1], err)
			}
			hi, err := strconv.ParseFloat(strings.TrimSpace(m[3]), 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: upper bound: %w", m[1], err)
			}
			def, err := strconv.ParseFloat(strings.TrimSpace(m[4]), 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: default: %w", m[1], err)
			}
			p := &Parameter{Name: m[1], KindStr: "continuous", Lower: lo, Upper: hi, Default: def, LogScale: m[5] == "log"}
			byName[p.Name] = p
			order = append(order, p.Name)
		case reInt.MatchString(line):
			m := reInt.FindStringSubmatch(line)
			lo, err := strconv.ParseFloat(strings.TrimSpace(m[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: lower bound: %w", m[1], err)
			}
			hi, err := strconv.ParseFloat(strings.TrimSpace(m[3]), 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: upper bound: %w", m[1], err)
			}
			defInt, err := strconv.Atoi(strings.TrimSpace(m[4]))
			if err != nil {
				return nil, fmt.Errorf("parameter %q: default: %w", m[1], err)
			}
			p := &Parameter{Name: m[1], KindStr: "discrete", Lower: lo, Upper: hi, Default: defInt}
			byName[p.Name] = p
			order = append(order, p.Name)
		case reCat.MatchString(line):
			m := reCat.FindStringSubmatch(line)
			choices := splitCSV(m[2])
			p := &Parameter{Name: m[1], KindStr: "categorical", Choices: choices, Default: strings.TrimSpace(m[3])}
			byName[p.Name] = p
			order = append(order, p.Name)
		default:
			return nil, fmt.Errorf("unrecognized PCS line: %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	params := make([]*Parameter, 0, len(order))
	for _, name := range order {
		params = append(params, byName[name])
	}
	return params, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
