package attention

// Attribution scores one generated word against every prompt token.
// Scores is parallel to Tokens.
type Attribution struct {
	Word   string    `json:"word"`
	Scores []float64 `json:"scores"`
	Tokens []string  `json:"tokens"`
}

// Event is one item of an attribution stream. Exactly one of Attribution
// and Done is set. The Done event is always last and carries the cause of
// an early stop in Err, nil when the upstream finished normally.
type Event struct {
	Attribution *Attribution
	Done        bool
	Err         error
}
