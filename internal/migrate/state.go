// Package migrate moves a WordPress database from one environment to
// another: dump on the source, rename the database inside the dump,
// transfer it, replace the destination database and put the destination's
// own site URLs back.
package migrate

// State is a pipeline position. States advance strictly in declaration
// order; Aborted is reachable from any non-terminal state.
type State int

const (
	Initialized State = iota
	Validated
	SourceUp
	Dumped
	Transformed
	Transferred
	IdentityBackedUp
	Applied
	IdentityRestored
	CleanedUp
	Completed
	Aborted
)

// Steps is the number of transitions from Initialized to Completed.
const Steps = int(Completed - Initialized)

var stateNames = [...]string{
	Initialized:      "initialized",
	Validated:        "validated",
	SourceUp:         "source-up",
	Dumped:           "dumped",
	Transformed:      "transformed",
	Transferred:      "transferred",
	IdentityBackedUp: "identity-backed-up",
	Applied:          "applied",
	IdentityRestored: "identity-restored",
	CleanedUp:        "cleaned-up",
	Completed:        "completed",
	Aborted:          "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Completed || s == Aborted
}
