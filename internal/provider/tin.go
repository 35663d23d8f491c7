package provider

import "strings"

// CleanTIN strips every non-digit from tin and returns the result only when
// exactly nine digits remain.
func CleanTIN(tin string) *string {
	var b strings.Builder
	for _, r := range tin {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != 9 {
		return nil
	}
	s := b.String()
	return &s
}
