// Package ranker maintains a skill rating per configuration and derives a
// tournament winner from one race's results, following the TrueSkill
// online rating system the original implementation uses via the Python
// `trueskill` package.
package ranker

import "math"

// Constants copied verbatim from the original implementation's
// result_processing.py module-level constants.
const (
	InitialMu    = 25.0
	InitialSigma = 25.0 / 3.0
	Beta         = InitialSigma / 2.0
	DrawProbability = 0.10
	Dynamics        = InitialSigma / 300.0
)

// Rating is a configuration's current skill estimate.
type Rating struct {
	Mu    float64
	Sigma float64
}

// NewRating returns the prior every configuration starts with.
func NewRating() Rating {
	return Rating{Mu: InitialMu, Sigma: InitialSigma}
}

func (r Rating) withDynamics() Rating {
	// Additive dynamics factor: skill estimates decay toward higher
	// uncertainty between races so the system can track non-stationary
	// target algorithm behavior, exactly as the original's tau parameter.
	sigma2 := r.Sigma*r.Sigma + Dynamics*Dynamics
	return Rating{Mu: r.Mu, Sigma: math.Sqrt(sigma2)}
}

const sqrt2 = math.Sqrt2

func cdf(x float64) float64 { return 0.5 * math.Erfc(-x/sqrt2) }
func pdf(x float64) float64 { return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi) }
func invCDF(p float64) float64 { return sqrt2 * math.Erfinv(2*p-1) }

// vWin and wWin are the truncated-Gaussian correction terms for a
// non-drawn outcome; vDraw/wDraw the analogous terms when the margin falls
// within the draw region. These are the standard TrueSkill factor-graph
// update functions.
func vWin(t, eps float64) float64 {
	denom := cdf(t - eps)
	if denom < 1e-12 {
		return -t + eps
	}
	return pdf(t-eps) / denom
}

func wWin(t, eps float64) float64 {
	v := vWin(t, eps)
	denom := cdf(t - eps)
	if denom < 1e-12 {
		return 1
	}
	return v * (v + t - eps)
}

func vDraw(t, eps float64) float64 {
	num := pdf(-eps-t) - pdf(eps-t)
	denom := cdf(eps-t) - cdf(-eps-t)
	if math.Abs(denom) < 1e-12 {
		return -t
	}
	return num / denom
}

func wDraw(t, eps float64) float64 {
	v := vDraw(t, eps)
	denom := cdf(eps-t) - cdf(-eps-t)
	if math.Abs(denom) < 1e-12 {
		return 1
	}
	return v*v + ((eps-t)*pdf(eps-t)-(-eps-t)*pdf(-eps-t))/denom
}

// drawMargin converts DrawProbability into the epsilon margin used by the
// v/w functions, for a 2-player comparison (the pairwise decomposition
// this package uses for every adjacent rank comparison).
func drawMargin(totalBeta float64) float64 {
	return invCDF((1+DrawProbability)/2) * math.Sqrt(2) * totalBeta
}

// updatePair applies one TrueSkill update to the pair (winner, loser); if
// drawn is true neither is preferred. Returns the updated ratings in the
// same order they were passed in.
func updatePair(a, b Rating, drawn bool) (Rating, Rating) {
	a = a.withDynamics()
	b = b.withDynamics()

	c := math.Sqrt(2*Beta*Beta + a.Sigma*a.Sigma + b.Sigma*b.Sigma)
	eps := drawMargin(Beta)
	t := (a.Mu - b.Mu) / c

	var v, w float64
	if drawn {
		v, w = vDraw(t, eps/c), wDraw(t, eps/c)
	} else {
		v, w = vWin(t, eps/c), wWin(t, eps/c)
	}

	aMu := a.Mu + (a.Sigma*a.Sigma/c)*v
	bMu := b.Mu - (b.Sigma*b.Sigma/c)*v

	aSigma2 := a.Sigma * a.Sigma * math.Max(1-(a.Sigma*a.Sigma/(c*c))*w, 1e-6)
	bSigma2 := b.Sigma * b.Sigma * math.Max(1-(b.Sigma*b.Sigma/(c*c))*w, 1e-6)

	return Rating{Mu: aMu, Sigma: math.Sqrt(aSigma2)}, Rating{Mu: bMu, Sigma: math.Sqrt(bSigma2)}
}

// UpdateRanks takes ratings ordered best-to-worst (rank 0 is the winner;
// ties share a rank) and returns the updated ratings in the same order,
// by folding the free-for-all update into a sequence of adjacent pairwise
// comparisons — drawn where ranks tie, won/lost otherwise. This is the
// standard simplification of the full TrueSkill factor graph used when no
// library implementation is available to depend on.
func UpdateRanks(ratings []Rating, ranks []int) []Rating {
	out := append([]Rating(nil), ratings...)
	for i := 0; i < len(out)-1; i++ {
		drawn := ranks[i] == ranks[i+1]
		better, worse := out[i], out[i+1]
		if ranks[i] <= ranks[i+1] {
			better, worse = updatePair(better, worse, drawn)
		} else {
			worse, better = updatePair(worse, better, drawn)
		}
		out[i], out[i+1] = better, worse
	}
	return out
}
