package pipeline

import (
	"fmt"
	"strings"
)

// State is how far one image got through the run.
type State int

const (
	Pending State = iota
	HeaderLoaded
	Aligned
	Tagged
	Written
	Failed
)

var stateNames = [...]string{"pending", "header_loaded", "aligned", "tagged", "written", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Policy decides what a header load failure does to the rest of the run.
type Policy int

const (
	// FailClosed stops the run at the first image whose header cannot be
	// loaded.
	FailClosed Policy = iota
	// FailOpen marks only that image failed and carries on.
	FailOpen
)

func (p Policy) String() string {
	switch p {
	case FailClosed:
		return "fail-closed"
	case FailOpen:
		return "fail-open"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "fail-closed" or "fail-open". Empty means fail-closed.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-closed":
		return FailClosed, nil
	case "fail-open":
		return FailOpen, nil
	default:
		return 0, fmt.Errorf("unknown header failure policy %q (want fail-closed or fail-open)", s)
	}
}
