package space

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// SampleDefault returns the configuration holding every enabled
// parameter's declared default, walking cs.Order so a conditional
// parameter's activity is decided from its parent's already-assigned
// default. Parameters disabled by their condition are omitted.
func SampleDefault(cs *ConfigSpace) *Configuration {
	values := make(map[string]interface{}, len(cs.Order))
	for _, name := range cs.Order {
		p := cs.Params[name]
		if !p.Active(values) {
			continue
		}
		values[name] = p.Default
	}
	return &Configuration{ID: newID(), Values: values}
}

// SampleRandom draws a random value for every enabled parameter (uniform,
// log-uniform or normal, as the parameter declares), walking cs.Order so a
// conditional parameter always sees its parent's freshly sampled value before deciding whether it is active. Parameters
// disabled by their condition are omitted from the result.
func SampleRandom(cs *ConfigSpace, rng *rand.Rand) *Configuration {
	values := make(map[string]interface{}, len(cs.Order))
	for _, name := range cs.Order {
		p := cs.Params[name]
		if !p.Active(values) {
			continue
		}
		values[name] = randomValue(p, rng)
	}
	return &Configuration{ID: newID(), Values: values}
}

func randomValue(p *Parameter, rng *rand.Rand) interface{} {
	switch p.Kind {
	case Binary:
		return rng.Intn(2) == 1
	case Categorical:
		if len(p.Choices) == 0 {
			return p.Default
		}
		return p.Choices[rng.Intn(len(p.Choices))]
	case Discrete:
		lo, hi := int(p.Lower), int(p.Upper)
		if hi <= lo {
			return lo
		}
		return lo + rng.Intn(hi-lo+1)
	case Continuous:
		if p.Distribution == "normal" {
			return sampleNormal(p, rng)
		}
		if p.LogScale && p.Lower > 0 && p.Upper > 0 {
			logLo, logHi := math.Log(p.Lower), math.Log(p.Upper)
			return math.Exp(logLo + rng.Float64()*(logHi-logLo))
		}
		return p.Lower + rng.Float64()*(p.Upper-p.Lower)
	default:
		return p.Default
	}
}

// Crossover produces a child by, for each parameter independently,
// inheriting the value from parent a or parent b with equal probability
// (uniform crossover, matching the original's per-parameter coin flip
// across the two parents selected from the top of the pool by mean skill).
func Crossover(cs *ConfigSpace, a, b *Configuration, rng *rand.Rand) *Configuration {
	values := make(map[string]interface{}, len(cs.Order))
	for _, name := range cs.Order {
		p := cs.Params[name]
		if !p.Active(values) {
			continue
		}
		if rng.Intn(2) == 0 {
			values[name] = valueOrDefault(a, name, p)
		} else {
			values[name] = valueOrDefault(b, name, p)
		}
	}
	return &Configuration{ID: newID(), Values: values}
}

func valueOrDefault(c *Configuration, name string, p *Parameter) interface{} {
	if v, ok := c.Values[name]; ok {
		return v
	}
	return p.Default
}

// MutateWithDonor returns a copy of cfg where every active parameter is,
// independently, replaced with donor's value for that parameter with
// probability ratePct/100. Unlike Mutate, the replacement value for every
// mutated parameter within this single call comes from the same donor
// configuration rather than a fresh independent random draw per parameter
// — the original implementation samples exactly one donor per pool
// replacement event and reuses it across every parameter that event
// mutates, rather than redrawing per parameter.
func MutateWithDonor(cs *ConfigSpace, cfg, donor *Configuration, ratePct float64, rng *rand.Rand) *Configuration {
	out := cfg.Clone()
	out.ID = newID()
	for _, name := range cs.Order {
		p := cs.Params[name]
		if !p.Active(out.Values) {
			delete(out.Values, name)
			continue
		}
		if rng.Float64()*100 < ratePct {
			out.Values[name] = valueOrDefault(donor, name, p)
		}
	}
	return out
}

// Mutate returns a copy of cfg where every active parameter is, independently,
// re-sampled as SampleRandom draws it with probability ratePct/100 (the original
// implementation's per-parameter mutation rate), reusing a single rng draw
// sequence so callers that need one shared mutation outcome across several
// configurations can pass a rng already advanced to the desired state.
func Mutate(cs *ConfigSpace, cfg *Configuration, ratePct float64, rng *rand.Rand) *Configuration {
	out := cfg.Clone()
	out.ID = newID()
	for _, name := range cs.Order {
		p := cs.Params[name]
		if !p.Active(out.Values) {
			delete(out.Values, name)
			continue
		}
		if rng.Float64()*100 < ratePct {
			out.Values[name] = randomValue(p, rng)
		}
	}
	return out
}

// sampleNormal draws a normally distributed value centered on the
// parameter's default (the bounds' midpoint when the default is not
// numeric), with a standard deviation of a quarter of the range, clipped
// to the declared bounds. Log-scaled parameters sample in log space and
// exponentiate, like their uniform counterpart.
func sampleNormal(p *Parameter, rng *rand.Rand) float64 {
	lo, hi := p.Lower, p.Upper
	if p.LogScale && lo > 0 && hi > 0 {
		logLo, logHi := math.Log(lo), math.Log(hi)
		mean := logLo + (logHi-logLo)/2
		if d, ok := numericValue(p.Default); ok && d > 0 {
			mean = clamp(math.Log(d), logLo, logHi)
		}
		v := clamp(rng.NormFloat64()*(logHi-logLo)/4+mean, logLo, logHi)
		return math.Exp(v)
	}
	mean := lo + (hi-lo)/2
	if d, ok := numericValue(p.Default); ok {
		mean = clamp(d, lo, hi)
	}
	return clamp(rng.NormFloat64()*(hi-lo)/4+mean, lo, hi)
}

func numericValue(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func newID() string {
	return uuid.New().String()
}
