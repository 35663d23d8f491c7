// Package normalize reshapes loosely structured extraction output into the
// fixed intake schema.
package normalize

import (
	"fmt"
	"strconv"

	"github.com/sells-group/intake-cli/internal/model"
)

// Legacy flat-shape keys and the canonical keys they stand in for.
var legacyAliases = map[string]string{
	"CPT_code":      model.FieldCPTCode,
	"order_request": model.FieldServiceDescription,
}

var (
	patientSet   = toSet(model.PatientFields)
	procedureSet = toSet(model.ProcedureFields)
)

type normalizedFields struct {
	patient    map[string]any
	procedures []map[string]any
}

// Normalize reshapes raw into a NormalizedIntake. It never fails: every fixed
// key is present in the output, defaulted to absent, and unknown keys are
// dropped.
func Normalize(raw map[string]any) model.NormalizedIntake {
	fields := Detect(raw).reshape()

	out := model.NormalizedIntake{
		PatientInfo: make(model.PatientInfo, len(model.PatientFields)),
		Procedures:  make([]model.Procedure, 0, len(fields.procedures)),
	}
	for _, key := range model.PatientFields {
		out.PatientInfo[key] = toProvenance(fields.patient[key])
	}
	for _, p := range fields.procedures {
		proc := make(model.Procedure, len(model.ProcedureFields))
		for _, key := range model.ProcedureFields {
			proc[key] = toProvenance(p[key])
		}
		out.Procedures = append(out.Procedures, proc)
	}
	return out
}

func (n Nested) reshape() normalizedFields {
	f := normalizedFields{
		patient:    n.PatientInfo,
		procedures: make([]map[string]any, 0, len(n.Procedures)),
	}
	for _, p := range n.Procedures {
		m, _ := p.(map[string]any)
		f.procedures = append(f.procedures, m)
	}
	return f
}

func (fl Flat) reshape() normalizedFields {
	patient := make(map[string]any)
	procedure := make(map[string]any)

	for key, value := range fl {
		switch {
		case patientSet[key]:
			patient[key] = value
		case procedureSet[key]:
			procedure[key] = value
		default:
			canonical, ok := legacyAliases[key]
			if !ok {
				continue
			}
			if _, present := fl[canonical]; present {
				continue
			}
			procedure[canonical] = value
		}
	}

	f := normalizedFields{patient: patient}
	if len(procedure) > 0 {
		f.procedures = []map[string]any{procedure}
	}
	return f
}

// toProvenance reads a provenance mapping leniently. Anything that is not a
// mapping is absent.
func toProvenance(v any) model.ValueProvenance {
	m, ok := v.(map[string]any)
	if !ok {
		return model.Absent()
	}

	out := model.ValueProvenance{
		Value:      scalarString(m["value"]),
		Source:     model.SourceNotFound,
		Confidence: model.ConfidenceNotFound,
	}
	if s, ok := m["source"].(string); ok && s != "" {
		out.Source = s
	}
	if c, ok := m["confidence"].(string); ok && c != "" {
		out.Confidence = c
	}
	return out
}

func scalarString(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case map[string]any, []any:
		return nil
	default:
		s = fmt.Sprint(t)
	}
	return &s
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
