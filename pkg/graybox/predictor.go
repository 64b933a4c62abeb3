// Package graybox implements the optional early-termination overlay: a
// periodic prediction tick that inspects the live telemetry of a running
// tournament, terminates workers predicted to lose, and races the freed
// cores speculatively on the next problem instance with the unused part of
// the current budget carried over as a time advantage.
package graybox

import (
	"fmt"
	"math"
	"sync"
)

// Telemetry is one worker's reading at a prediction tick, or its final
// reading when used as training ground truth after the race.
type Telemetry struct {
	Core     int
	ConfigID string
	Elapsed  float64   // seconds since the race started
	Interim  []float64 // interim readings observed so far, oldest first
}

// Predictor decides, from pairwise live telemetry, which running workers
// are likely to lose the current race. The engine fixes only this contract,
// not the learner behind it; any cost-sensitive binary classifier fits.
type Predictor interface {
	// PrepareTrainData folds one finished race into the training set:
	// final per-core telemetry plus which core won.
	PrepareTrainData(final []Telemetry, winnerCore int)

	// Train fits the model on everything accumulated so far.
	Train() error

	// PreparePredictData assembles the pairwise feature vector asking
	// whether a loses to b.
	PreparePredictData(a, b Telemetry) []float64

	// ClassifyConfigs labels each feature vector: true means the pair's
	// first worker is predicted to lose.
	ClassifyConfigs(pairs [][]float64) []bool

	// TermList reduces the pairwise predictions over the currently live
	// workers to the list of cores to terminate. It never names every
	// live core.
	TermList(live []Telemetry) []int
}

const pairFeatureLen = 4

// pairFeatures compares two workers' progress: elapsed-time gap, latest
// interim gap, interim-count gap, and recent-slope gap.
func pairFeatures(a, b Telemetry) []float64 {
	return []float64{
		a.Elapsed - b.Elapsed,
		lastInterim(a) - lastInterim(b),
		float64(len(a.Interim) - len(b.Interim)),
		slope(a.Interim) - slope(b.Interim),
	}
}

func lastInterim(t Telemetry) float64 {
	if len(t.Interim) == 0 {
		return 0
	}
	return t.Interim[len(t.Interim)-1]
}

// slope is the change across the last two interim readings, the cheapest
// usable signal of whether a worker is still improving.
func slope(interim []float64) float64 {
	if len(interim) < 2 {
		return 0
	}
	return interim[len(interim)-1] - interim[len(interim)-2]
}

// CostSensitiveLogit is the reference Predictor: logistic regression over
// pairwise progress features, trained by SGD with winner-preserving
// examples weighted more heavily than loser examples, so a false "will
// lose" call on the eventual winner costs more than a missed kill.
type CostSensitiveLogit struct {
	LearnRate  float64
	Epochs     int
	WinnerCost float64 // weight on examples whose first worker is the eventual winner

	mu      sync.Mutex
	x       [][]float64
	y       []float64 // 1 = the pair's first worker lost
	weights []float64
	bias    float64
	fitted  bool
}

// NewCostSensitiveLogit returns a predictor with the default training
// hyperparameters.
func NewCostSensitiveLogit() *CostSensitiveLogit {
	return &CostSensitiveLogit{LearnRate: 0.05, Epochs: 40, WinnerCost: 4.0}
}

func (p *CostSensitiveLogit) PrepareTrainData(final []Telemetry, winnerCore int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var winner *Telemetry
	for i := range final {
		if final[i].Core == winnerCore {
			winner = &final[i]
			break
		}
	}
	if winner == nil {
		return
	}
	for i := range final {
		if final[i].Core == winnerCore {
			continue
		}
		// Winner vs each loser, both orientations; pairs between two
		// losers carry no reliable label and are skipped.
		p.x = append(p.x, pairFeatures(final[i], *winner))
		p.y = append(p.y, 1)
		p.x = append(p.x, pairFeatures(*winner, final[i]))
		p.y = append(p.y, 0)
	}
}

func (p *CostSensitiveLogit) Train() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.x) == 0 {
		return fmt.Errorf("graybox: no training data accumulated yet")
	}
	if p.weights == nil {
		p.weights = make([]float64, pairFeatureLen)
	}
	for epoch := 0; epoch < p.Epochs; epoch++ {
		for i, xi := range p.x {
			pred := sigmoid(dot(p.weights, xi) + p.bias)
			grad := pred - p.y[i]
			w := 1.0
			if p.y[i] == 0 {
				w = p.WinnerCost
			}
			for j := range p.weights {
				p.weights[j] -= p.LearnRate * w * grad * xi[j]
			}
			p.bias -= p.LearnRate * w * grad
		}
	}
	p.fitted = true
	return nil
}

func (p *CostSensitiveLogit) PreparePredictData(a, b Telemetry) []float64 {
	return pairFeatures(a, b)
}

func (p *CostSensitiveLogit) ClassifyConfigs(pairs [][]float64) []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]bool, len(pairs))
	if !p.fitted {
		return out
	}
	for i, xi := range pairs {
		out[i] = sigmoid(dot(p.weights, xi)+p.bias) > 0.5
	}
	return out
}

// TermList votes over every ordered pair of live workers: a core predicted
// to lose a strict majority of its pairings goes on the kill list. The
// core with the fewest loss votes always survives, so a race can never be
// emptied by its own predictor.
func (p *CostSensitiveLogit) TermList(live []Telemetry) []int {
	if len(live) < 2 {
		return nil
	}
	var pairs [][]float64
	type pairRef struct{ a, b int }
	var refs []pairRef
	for i := range live {
		for j := range live {
			if i == j {
				continue
			}
			pairs = append(pairs, p.PreparePredictData(live[i], live[j]))
			refs = append(refs, pairRef{a: i, b: j})
		}
	}
	labels := p.ClassifyConfigs(pairs)

	losses := make([]int, len(live))
	for k, lost := range labels {
		if lost {
			losses[refs[k].a]++
		}
	}
	safest := 0
	for i := range losses {
		if losses[i] < losses[safest] {
			safest = i
		}
	}
	majority := len(live) - 1
	var kills []int
	for i, n := range losses {
		if i == safest {
			continue
		}
		if 2*n > majority {
			kills = append(kills, live[i].Core)
		}
	}
	return kills
}

func sigmoid(x float64) float64 {
	if x < -30 {
		return 0
	}
	if x > 30 {
		return 1
	}
	return 1 / (1 + math.Exp(-x))
}

func dot(w, x []float64) float64 {
	s := 0.0
	for i := range w {
		if i < len(x) {
			s += w[i] * x[i]
		}
	}
	return s
}
