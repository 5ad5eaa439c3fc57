package utils

// Truncate returns s truncated to maxLen bytes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TailWords returns the last n words of words without copying the backing array.
// Returns words unchanged when n is zero or exceeds the slice length.
func TailWords(words []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if n >= len(words) {
		return words
	}
	return words[len(words)-n:]
}
