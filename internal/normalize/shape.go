package normalize

// Shape is the detected layout of raw extraction output.
type Shape interface {
	reshape() normalizedFields
}

// Nested is extraction output already split into patient info and procedures.
type Nested struct {
	PatientInfo map[string]any
	Procedures  []any
}

// Flat is extraction output keyed by field name with no nesting.
type Flat map[string]any

// Detect classifies raw. Output holding both a patient_info mapping and a
// procedures sequence is Nested; anything else is Flat.
func Detect(raw map[string]any) Shape {
	info, infoOK := raw["patient_info"].(map[string]any)
	procs, procsOK := raw["procedures"].([]any)
	if infoOK && procsOK {
		return Nested{PatientInfo: info, Procedures: procs}
	}
	return Flat(raw)
}
