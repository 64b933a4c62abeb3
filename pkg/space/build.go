package space

import "fmt"

// New builds a ConfigSpace from a flat parameter list, validating the
// conditional DAG and computing a topological Order. Parameters may be
// given in any order; a parameter naming an unknown Condition.Parent, or
// participating in a dependency cycle, is a build error.
func New(params []*Parameter) (*ConfigSpace, error) {
	byName := make(map[string]*Parameter, len(params))
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("space: parameter with empty name")
		}
		if _, dup := byName[p.Name]; dup {
			return nil, fmt.Errorf("space: duplicate parameter %q", p.Name)
		}
		k, err := parseKind(p.KindStr)
		if err != nil {
			return nil, fmt.Errorf("space: parameter %q: %w", p.Name, err)
		}
		if (k == Discrete || k == Continuous) && p.Lower >= p.Upper {
			return nil, fmt.Errorf("space: parameter %q: invalid bounds [%v, %v]", p.Name, p.Lower, p.Upper)
		}
		switch p.Distribution {
		case "":
		case "uniform", "normal":
			if k != Continuous {
				return nil, fmt.Errorf("space: parameter %q: distribution applies to continuous parameters only", p.Name)
			}
		default:
			return nil, fmt.Errorf("space: parameter %q: unknown distribution %q", p.Name, p.Distribution)
		}
		if k == Categorical && len(p.Choices) == 0 {
			return nil, fmt.Errorf("space: parameter %q: categorical with no choices", p.Name)
		}
		p.Kind = k
		byName[p.Name] = p
	}
	for _, p := range params {
		if p.Condition == nil {
			continue
		}
		if _, ok := byName[p.Condition.Parent]; !ok {
			return nil, fmt.Errorf("space: parameter %q conditions on unknown parent %q", p.Name, p.Condition.Parent)
		}
	}

	order, err := topoSort(params, byName)
	if err != nil {
		return nil, err
	}
	return &ConfigSpace{Order: order, Params: byName}, nil
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "discrete":
		return Discrete, nil
	case "continuous":
		return Continuous, nil
	case "categorical":
		return Categorical, nil
	case "binary":
		return Binary, nil
	default:
		return 0, fmt.Errorf("unknown parameter type %q", s)
	}
}

// topoSort orders parameters so that every Condition.Parent precedes its
// dependents, detecting cycles along the way.
func topoSort(params []*Parameter, byName map[string]*Parameter) ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(params))
	order := make([]string, 0, len(params))

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("space: dependency cycle involving %q", name)
		}
		color[name] = gray
		p := byName[name]
		if p.Condition != nil {
			if err := visit(p.Condition.Parent); err != nil {
				return err
			}
		}
		color[name] = black
		order = append(order, name)
		return nil
	}

	for _, p := range params {
		if err := visit(p.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Get returns the named parameter, or nil if it does not exist.
func (cs *ConfigSpace) Get(name string) *Parameter {
	return cs.Params[name]
}
