package utils

// Truncate cuts s to at most maxLen runes and appends an ellipsis when it
// had to cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
