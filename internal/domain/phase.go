package domain

import "fmt"

// Phase is the indexer's crawl phase.
type Phase int

const (
	// PhaseBoxset pages through collections and records their members.
	PhaseBoxset Phase = iota
	// PhaseNegative pages through movie ids and records negative entries
	// for every movie without a mapping.
	PhaseNegative
	// PhaseMovie resolves movies one by one (standalone direct discovery).
	PhaseMovie
)

var phaseNames = map[Phase]string{
	PhaseBoxset:   "boxset",
	PhaseNegative: "negative",
	PhaseMovie:    "movie",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// ParsePhase converts a persisted phase name. Unknown names yield PhaseBoxset.
func ParsePhase(s string) Phase {
	for p, name := range phaseNames {
		if name == s {
			return p
		}
	}
	return PhaseBoxset
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	*p = ParsePhase(string(b))
	return nil
}

type transition struct {
	next      Phase
	cycleDone bool
}

// exhaustedTransitions is the full transition table for a phase whose
// paging returned an empty page. A phase that is not exhausted stays put.
var exhaustedTransitions = map[Phase]transition{
	PhaseBoxset:   {next: PhaseNegative},
	PhaseNegative: {next: PhaseBoxset, cycleDone: true},
	PhaseMovie:    {next: PhaseBoxset, cycleDone: true},
}

// NextPhase returns the phase after p and whether a full cycle completed.
func NextPhase(p Phase, exhausted bool) (Phase, bool) {
	if !exhausted {
		return p, false
	}
	t, ok := exhaustedTransitions[p]
	if !ok {
		return PhaseBoxset, true
	}
	return t.next, t.cycleDone
}
