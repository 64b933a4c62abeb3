package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// TournamentLog writes the per-run log directory described by spec.md §6:
// {log_folder}/{wrapper_name}_{ac}/ holding a free-text audit trail,
// per-tournament pool/score/contender snapshots, and a handful of small
// rolling-state files that get overwritten in place rather than appended
// to, mirroring the original implementation's single-line log handlers.
type TournamentLog struct {
	dir    string
	logger *Logger

	mu   sync.Mutex
	best map[string]float64 // instance -> best-seen value across the run
}

// NewTournamentLog creates (or reuses) {root}/{dirName} and returns a
// TournamentLog bound to it.
func NewTournamentLog(root, dirName string, logger *Logger) (*TournamentLog, error) {
	dir := filepath.Join(root, dirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &TournamentLog{dir: dir, logger: logger, best: make(map[string]float64)}, nil
}

// Dir returns the log directory path.
func (t *TournamentLog) Dir() string { return t.dir }

// Logger returns the structured logger this log was built with, so the
// driver can derive per-tournament child loggers from it.
func (t *TournamentLog) Logger() *Logger { return t.logger }

func (t *TournamentLog) append(name, line string) error {
	f, err := os.OpenFile(filepath.Join(t.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (t *TournamentLog) overwrite(name, content string) error {
	if err := os.WriteFile(filepath.Join(t.dir, name), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func timestamp() string { return time.Now().UTC().Format("2006-01-02T15:04:05Z") }

// General appends a free-text audit-trail line to general.log.
func (t *TournamentLog) General(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	line := fmt.Sprintf("[%s] %s\n", timestamp(), fmt.Sprintf(format, args...))
	if err := t.append("general.log", line); err != nil && t.logger != nil {
		t.logger.Warn("general.log write failed", "error", err)
	}
}

// Winner appends the selected winner of one race to winner.log.
func (t *TournamentLog) Winner(tournNr int, instance, configID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	line := fmt.Sprintf("tournament=%d instance=%s winner=%s\n", tournNr, instance, configID)
	if err := t.append("winner.log", line); err != nil && t.logger != nil {
		t.logger.Warn("winner.log write failed", "error", err)
	}
}

// SlotStats is one worker's final record within a TournamentStats entry.
type SlotStats struct {
	Core        int     `yaml:"core"`
	ConfigID    string  `yaml:"config_id"`
	Objective   float64 `yaml:"objective"`
	HasResult   bool    `yaml:"has_result"`
	Runtime     float64 `yaml:"runtime"`
	WallRuntime float64 `yaml:"wall_runtime"`
	Status      string  `yaml:"status"`
}

// TournamentStats is the append-only record of one completed race.
type TournamentStats struct {
	TournNr  int         `yaml:"tourn_nr"`
	Instance string      `yaml:"instance"`
	Timeout  float64     `yaml:"timeout"`
	WinnerID string      `yaml:"winner"`
	Slots    []SlotStats `yaml:"slots"`
}

// TournStats appends one race's full record to tourn_stats.log as a YAML
// document.
func (t *TournamentLog) TournStats(stats TournamentStats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, err := yaml.Marshal(stats)
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("tourn_stats marshal failed", "error", err)
		}
		return
	}
	if err := t.append("tourn_stats.log", "---\n"+string(data)); err != nil && t.logger != nil {
		t.logger.Warn("tourn_stats.log write failed", "error", err)
	}
}

// SetTournNr overwrites tourn_nr.log with the current tournament counter.
func (t *TournamentLog) SetTournNr(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overwrite("tourn_nr.log", strconv.Itoa(n)+"\n")
}

// TournNr reads back the last persisted tournament counter, used on resume.
func (t *TournamentLog) TournNr() (int, error) {
	data, err := os.ReadFile(filepath.Join(t.dir, "tourn_nr.log"))
	if err != nil {
		return 0, fmt.Errorf("failed to read tourn_nr.log: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed tourn_nr.log: %w", err)
	}
	return n, nil
}

// UpdateBestSeen folds a new instance result into the rolling best-seen
// table and rewrites times.log (wall-clock mode) or results.log
// (objective-value mode) with the full current table, one "instance
// value" line per entry sorted by instance name.
func (t *TournamentLog) UpdateBestSeen(instance string, value float64, objectiveMin bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.best[instance]; !ok || value < prev {
		t.best[instance] = value
	}

	name := "times.log"
	if objectiveMin {
		name = "results.log"
	}

	names := make([]string, 0, len(t.best))
	for k := range t.best {
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, n := range names {
		fmt.Fprintf(&sb, "%s %g\n", n, t.best[n])
	}
	return t.overwrite(name, sb.String())
}

// WritePool writes pool_tourn_{n}.log: one configuration ID per line.
func (t *TournamentLog) WritePool(tournNr int, configIDs []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	name := fmt.Sprintf("pool_tourn_%d.log", tournNr)
	return t.overwrite(name, strings.Join(configIDs, "\n")+"\n")
}

// WriteScores writes scores_tourn_{n}.log: one "configID mu sigma" line
// per rated configuration, in the order given.
func (t *TournamentLog) WriteScores(tournNr int, ids []string, mus, sigmas []float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var sb strings.Builder
	for i, id := range ids {
		fmt.Fprintf(&sb, "%s %g %g\n", id, mus[i], sigmas[i])
	}
	name := fmt.Sprintf("scores_tourn_%d.log", tournNr)
	return t.overwrite(name, sb.String())
}

// WriteContenderDict writes contender_dict_tourn_{n}.log: one "slot
// configID" line per race-slot assignment, sorted by slot index.
func (t *TournamentLog) WriteContenderDict(tournNr int, slotToConfig map[int]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	slots := make([]int, 0, len(slotToConfig))
	for s := range slotToConfig {
		slots = append(slots, s)
	}
	sort.Ints(slots)
	var sb strings.Builder
	for _, s := range slots {
		fmt.Fprintf(&sb, "%d %s\n", s, slotToConfig[s])
	}
	name := fmt.Sprintf("contender_dict_tourn_%d.log", tournNr)
	return t.overwrite(name, sb.String())
}

// WriteScenario dumps the resolved scenario document to scenario.log once
// at the start of a run, for after-the-fact reproducibility.
func (t *TournamentLog) WriteScenario(v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}
	return t.overwrite("scenario.log", string(data))
}
