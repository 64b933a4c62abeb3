package ranker

// cppl is a thin pass-through onto the ReACTR winner rule: the original
// implementation's ResultProcessingCPPL delegates winner selection to the
// same binary win/lose rule and only changes how contenders are picked for
// the next tournament, via a separate contextual-bandit selector. No such
// selector is implemented here: a CPPL run picks its next contenders with
// pkg/pool's Manager.SelectContenders, a uniform random draw from the pool
// that can leave the default configuration out of the contender set.
type cppl struct {
	reactr
}

// NewCPPL returns the Ranker used by the CPPL tournament method.
func NewCPPL(objectiveMin bool) Ranker { return cppl{reactr{objectiveMin: objectiveMin}} }

var _ Ranker = cppl{}
