package stackptr

// Usage thresholds. A candidate qualifies only when both counts are strictly
// greater than these.
const (
	DefaultMinReads  = 3
	DefaultMinWrites = 3
)

// Failure reasons reported in place of an index.
const (
	ReasonNoMemory      = "no local or imported memory"
	ReasonNoCandidate   = "no mutable i32 global"
	ReasonNotEnoughUses = "not enough uses of all candidate pointers"
)

// Thresholds are the strict lower bounds a candidate must exceed.
type Thresholds struct {
	MinReads  uint64
	MinWrites uint64
}

// DefaultThresholds returns the standard bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{MinReads: DefaultMinReads, MinWrites: DefaultMinWrites}
}

// Qualifies reports whether a candidate is used often enough to be considered.
func (t Thresholds) Qualifies(c Candidate) bool {
	return c.Reads > t.MinReads && c.Writes > t.MinWrites
}

// Result is the outcome of classification. Exactly one of Reason and the
// chosen candidate is meaningful; OK tells which.
type Result struct {
	Reason string
	Chosen Candidate
	OK     bool
}

// Area returns the usage area of the chosen candidate, or zero on failure.
func (r Result) Area() uint64 {
	if !r.OK {
		return 0
	}
	return r.Chosen.Area()
}

// Classify picks the stack pointer among ordered candidate tallies.
// Memory presence is checked first, then candidate presence, then the
// thresholds. The highest area wins; on a tie the earlier candidate wins.
func Classify(hasMemory bool, candidates []Candidate, t Thresholds) Result {
	if !hasMemory {
		return Result{Reason: ReasonNoMemory}
	}
	if len(candidates) == 0 {
		return Result{Reason: ReasonNoCandidate}
	}

	best := -1
	for i, c := range candidates {
		if !t.Qualifies(c) {
			continue
		}
		if best < 0 || c.Area() > candidates[best].Area() {
			best = i
		}
	}
	if best < 0 {
		return Result{Reason: ReasonNotEnoughUses}
	}
	return Result{Chosen: candidates[best], OK: true}
}
