// Package space implements the configuration space: the typed parameter
// definitions a scenario declares, and the Configuration values sampled,
// crossed over and mutated from it during a run.
package space

import "fmt"

// Kind identifies the type of a parameter's domain.
type Kind int

const (
	Discrete Kind = iota
	Continuous
	Categorical
	Binary
)

func (k Kind) String() string {
	switch k {
	case Discrete:
		return "discrete"
	case Continuous:
		return "continuous"
	case Categorical:
		return "categorical"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Condition makes a parameter active only when its Parent currently holds
// one of Values. Parameters without a Condition are always active.
type Condition struct {
	Parent string   `yaml:"parent" json:"parent"`
	Values []string `yaml:"values" json:"values"`
}

// Parameter describes one dimension of the configuration space. Only the
// fields relevant to Kind are populated; the rest are zero.
type Parameter struct {
	Name    string `yaml:"name" json:"name"`
	Kind    Kind   `yaml:"-" json:"-"`
	KindStr string `yaml:"type" json:"type"`

	// Discrete/Continuous bounds.
	Lower   float64 `yaml:"lower,omitempty" json:"lower,omitempty"`
	Upper   float64 `yaml:"upper,omitempty" json:"upper,omitempty"`
	LogScale bool   `yaml:"log,omitempty" json:"log,omitempty"`

	// Distribution selects the continuous sampling law: "uniform" (the
	// default when empty) or "normal".
	Distribution string `yaml:"distribution,omitempty" json:"distribution,omitempty"`

	// Categorical domain.
	Choices []string `yaml:"choices,omitempty" json:"choices,omitempty"`

	Default interface{} `yaml:"default" json:"default"`

	Condition *Condition `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// Active reports whether p should be sampled/mutated given the current
// assignment of its parents.
func (p *Parameter) Active(assignment map[string]interface{}) bool {
	if p.Condition == nil {
		return true
	}
	v, ok := assignment[p.Condition.Parent]
	if !ok {
		return false
	}
	s := fmt.Sprintf("%v", v)
	for _, want := range p.Condition.Values {
		if s == want {
			return true
		}
	}
	return false
}

// ConfigSpace is the full declared parameter domain for a scenario,
// including the conditional dependency structure between parameters.
type ConfigSpace struct {
	// Order is a topological ordering of Params: every parameter appears
	// after the parent named in its Condition, so sampling/mutation can
	// proceed in a single forward pass.
	Order  []string
	Params map[string]*Parameter
}

// Configuration is one point in a ConfigSpace: an opaque ID plus a
// parameter assignment. A parameter conditioned on a parent value is
// present in Values only while its parent assignment enables it; disabled
// conditional parameters are omitted entirely, not defaulted.
type Configuration struct {
	ID     string                 `yaml:"id" json:"id"`
	Values map[string]interface{} `yaml:"values" json:"values"`
}

// Clone returns a deep copy of c.
func (c *Configuration) Clone() *Configuration {
	values := make(map[string]interface{}, len(c.Values))
	for k, v := range c.Values {
		values[k] = v
	}
	return &Configuration{ID: c.ID, Values: values}
}
