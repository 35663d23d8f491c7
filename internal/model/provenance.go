package model

// Confidence levels reported by the extractor for a single field.
const (
	ConfidenceHigh     = "high"
	ConfidenceMedium   = "medium"
	ConfidenceLow      = "low"
	ConfidenceNotFound = "not found"
)

// SourceNotFound is the source recorded for a field the extractor did not find.
const SourceNotFound = "not found"

// ValueProvenance is an extracted value plus where it came from and how
// confident the extractor was. A nil Value with source "not found" is absent.
type ValueProvenance struct {
	Value      *string `json:"value"`
	Source     string  `json:"source"`
	Confidence string  `json:"confidence"`
}

// Absent returns the canonical "not found" provenance.
func Absent() ValueProvenance {
	return ValueProvenance{Source: SourceNotFound, Confidence: ConfidenceNotFound}
}

// Found returns a provenance carrying value.
func Found(value, source, confidence string) ValueProvenance {
	return ValueProvenance{Value: &value, Source: source, Confidence: confidence}
}

// IsAbsent reports whether the field carries no usable value.
func (v ValueProvenance) IsAbsent() bool {
	return v.Value == nil
}

// String returns the value or "" when absent.
func (v ValueProvenance) String() string {
	if v.Value == nil {
		return ""
	}
	return *v.Value
}
