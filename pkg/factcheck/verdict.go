package factcheck

import "strings"

// Verdict is the outcome of verifying one claim.
type Verdict string

const (
	Verified      Verdict = "verified"
	Uncertain     Verdict = "uncertain"
	Hallucination Verdict = "hallucination"
)

// ParseVerdict maps a model's verdict onto the known set. Anything
// unrecognised is Uncertain.
func ParseVerdict(s string) Verdict {
	switch v := Verdict(strings.ToLower(strings.TrimSpace(s))); v {
	case Verified, Uncertain, Hallucination:
		return v
	default:
		return Uncertain
	}
}
