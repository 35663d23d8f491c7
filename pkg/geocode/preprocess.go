package geocode

import (
	"strings"
)

// defaultCorrections maps misspelled or truncated state tokens seen in OCR
// output to their USPS abbreviation.
var defaultCorrections = map[string]string{
	"Flaz":    "FL",
	"Fla":     "FL",
	"Flor":    "FL",
	"Flo":     "FL",
	"Flordia": "FL",
	"Fla.":    "FL",
	"Cali":    "CA",
	"Cal":     "CA",
	"Calif":   "CA",
	"Calif.":  "CA",
	"Calf":    "CA",
	"Illi":    "IL",
	"Il":      "IL",
	"Ill":     "IL",
	"Ill.":    "IL",
}

// subAddressTokens are removed wherever they occur.
var subAddressTokens = []string{"Suite", "Apt", "Unit", "suite", "apt", "unit", "#"}

// subAddressMarkers start a sub-address qualifier that runs to the next comma.
var subAddressMarkers = []string{" Suite", " Ste", " Apartment", " Apt", " Unit", " #"}

// Preprocessor rewrites malformed addresses to improve the provider hit rate.
type Preprocessor struct {
	corrections map[string]string
}

// NewPreprocessor returns a Preprocessor using the built-in state corrections
// extended (or overridden) by extra.
func NewPreprocessor(extra map[string]string) *Preprocessor {
	corrections := make(map[string]string, len(defaultCorrections)+len(extra))
	for k, v := range defaultCorrections {
		corrections[k] = v
	}
	for k, v := range extra {
		corrections[k] = v
	}
	return &Preprocessor{corrections: corrections}
}

var defaultPreprocessor = NewPreprocessor(nil)

// Preprocess rewrites address with the built-in corrections.
func Preprocess(address string) string {
	return defaultPreprocessor.Preprocess(address)
}

// maxPasses bounds the fixed-point loop when extra corrections map tokens
// onto each other.
const maxPasses = 16

// Preprocess corrects state tokens, drops apostrophes and sub-address
// qualifiers (suite, apartment, unit) and trims the result. Each step can
// expose work for another (a stripped apostrophe or "#" inside "Ill'" or
// "Il#l" leaves a correctable state token), so the whole sequence repeats
// until the string is stable.
func (p *Preprocessor) Preprocess(address string) string {
	if address == "" {
		return address
	}

	out := address
	for range maxPasses {
		next := p.pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func (p *Preprocessor) pass(s string) string {
	s = p.correctStates(s)
	s = strings.ReplaceAll(s, "'", "")
	return stripSubAddress(s)
}

func stripSubAddress(s string) string {
	for _, tok := range subAddressTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	for _, marker := range subAddressMarkers {
		pos := strings.Index(s, marker)
		if pos < 0 {
			continue
		}
		if end := strings.Index(s[pos:], ","); end > 0 {
			s = s[:pos] + s[pos+end:]
		} else {
			s = s[:pos]
		}
	}
	return strings.TrimSpace(s)
}

// correctStates replaces state tokens word by word in the second and third
// comma-separated segments, where "City, ST ZIP" usually lives.
func (p *Preprocessor) correctStates(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return address
	}
	for i := 1; i < len(parts) && i < 3; i++ {
		words := strings.Fields(parts[i])
		changed := false
		for j, w := range words {
			if fix, ok := p.corrections[w]; ok && fix != w {
				words[j] = fix
				changed = true
			}
		}
		if changed {
			parts[i] = " " + strings.Join(words, " ")
		}
	}
	return strings.Join(parts, ",")
}
