// Package pipeline sequences generation, encoding and writing of one image,
// and maps failures to the error classes the command line reports.
package pipeline

// State is a step of a single run. A run moves forward through
// Idle, Generating, Encoding, Writing and Done, or jumps to Failed.
type State int

const (
	Idle State = iota
	Generating
	Encoding
	Writing
	Done
	Failed
)

var stateNames = [...]string{
	Idle:       "idle",
	Generating: "generating",
	Encoding:   "encoding",
	Writing:    "writing",
	Done:       "done",
	Failed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Done || s == Failed }
