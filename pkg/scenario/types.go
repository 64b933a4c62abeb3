// Package scenario defines the declarative YAML document that configures
// one RTAC run: which tournament method to use, how many cores and
// contenders to race, the replacement/evolution knobs, and the external
// collaborator modules (wrapper, feature generator) to invoke.
package scenario

import "time"

// AC identifies which tournament/ranking method a scenario runs.
type AC string

const (
	ReACTR   AC = "ReACTR"
	ReACTRpp AC = "ReACTRpp"
	CPPL     AC = "CPPL"
)

// Scenario is a complete RTAC run specification.
type Scenario struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   Metadata `yaml:"metadata"`
	Spec       Spec     `yaml:"spec"`
}

// Metadata identifies a scenario document.
type Metadata struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Author      string   `yaml:"author,omitempty"`
	Version     string   `yaml:"version,omitempty"`
}

// Spec holds every RTAC option recognized by the engine (spec.md §6).
type Spec struct {
	// NumberCores is the tournament parallelism (C).
	NumberCores int `yaml:"number_cores"`

	// Contenders is the pool size (P).
	Contenders int `yaml:"contenders"`

	// KeepTop is how many pool members select_next always keeps.
	KeepTop int `yaml:"keeptop"`

	// Timeout is the per-instance wall-clock budget.
	Timeout time.Duration `yaml:"timeout"`

	// ChancePct is the percent chance of pure-random replacement (vs
	// crossover) during pool management.
	ChancePct float64 `yaml:"chance"`

	// MutationRatePct is the per-gene mutation chance during crossover.
	MutationRatePct float64 `yaml:"mutate"`

	// KillSigma is the sigma threshold below which a pool member becomes
	// eligible for replacement.
	KillSigma float64 `yaml:"kill"`

	// PWS includes the default configuration in the pool (and protects
	// it from eviction) when true.
	PWS bool `yaml:"pws"`

	// ObjectiveMin ranks by objective value instead of runtime when true.
	ObjectiveMin bool `yaml:"objective_min"`

	// BaselinePerf forces number_cores=1, races only the default
	// configuration, and disables ranking/pool evolution.
	BaselinePerf bool `yaml:"baselineperf"`

	// Resume loads the last persisted tournament snapshot and continues.
	Resume bool `yaml:"resume"`

	// Experimental loads the tournament-0 snapshot specifically.
	Experimental bool `yaml:"experimental"`

	// Verbosity is 0, 1, or 2.
	Verbosity int `yaml:"verbosity"`

	// AC selects the tournament/ranking method.
	AC AC `yaml:"ac"`

	// GrayBox enables the early-termination overlay.
	GrayBox bool `yaml:"gray_box"`

	// GBReadTime is the GrayBox prediction tick interval.
	GBReadTime time.Duration `yaml:"gb_read_time"`

	// Wrapper names the external wrapper module/executable.
	Wrapper string `yaml:"wrapper"`

	// WrapperName is used to namespace the log directory
	// ({log_folder}/{wrapper_name}_{ac}/), matching the original
	// implementation's layout.
	WrapperName string `yaml:"wrapper_name"`

	// FeatureGen names the external instance-feature generator module,
	// required by the CPPL and GrayBox paths.
	FeatureGen string `yaml:"feature_gen,omitempty"`

	// LogFolder is the root log directory for this run.
	LogFolder string `yaml:"log_folder"`

	// ParamFile is the path to the configuration-space definition
	// (structured YAML/JSON or PCS-new text).
	ParamFile string `yaml:"param_file"`

	// InstanceFile is a text file, one problem instance path per line.
	InstanceFile string `yaml:"instance_file"`
}

// EffectiveCores returns the tournament parallelism, accounting for
// BaselinePerf forcing it to 1 regardless of the declared NumberCores.
func (s *Spec) EffectiveCores() int {
	if s.BaselinePerf {
		return 1
	}
	return s.NumberCores
}

// LogDirName returns the per-scenario subdirectory name under LogFolder.
func (s *Spec) LogDirName() string {
	return s.WrapperName + "_" + string(s.AC)
}
