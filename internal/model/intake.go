package model

import "strings"

// Patient info keys.
const (
	FieldPatientName     = "patient_name"
	FieldPatientAddress  = "patient_address"
	FieldClaimNumber     = "claim_number"
	FieldAdjustorInfo    = "adjustor_info"
	FieldEmployerName    = "employer_name"
	FieldEmployerPhone   = "employer_phone"
	FieldEmployerAddress = "employer_address"
	FieldEmployerEmail   = "employer_email"
)

// Procedure keys.
const (
	FieldServiceDescription       = "service_description"
	FieldCPTCode                  = "cpt_code"
	FieldICD10Code                = "icd10_code"
	FieldLocationRequest          = "location_request"
	FieldReferringProvider        = "referring_provider"
	FieldAdditionalConsiderations = "additional_considerations"
)

// PatientFields lists the fixed patient info keys in canonical order.
var PatientFields = []string{
	FieldPatientName,
	FieldPatientAddress,
	FieldClaimNumber,
	FieldAdjustorInfo,
	FieldEmployerName,
	FieldEmployerPhone,
	FieldEmployerAddress,
	FieldEmployerEmail,
}

// ProcedureFields lists the fixed procedure keys in canonical order.
var ProcedureFields = []string{
	FieldServiceDescription,
	FieldCPTCode,
	FieldICD10Code,
	FieldLocationRequest,
	FieldReferringProvider,
	FieldAdditionalConsiderations,
}

// PatientInfo maps each patient field key to its provenance.
type PatientInfo map[string]ValueProvenance

// Procedure maps each procedure field key to its provenance.
type Procedure map[string]ValueProvenance

// NormalizedIntake is extraction output reshaped into the fixed schema.
type NormalizedIntake struct {
	PatientInfo PatientInfo `json:"patient_info"`
	Procedures  []Procedure `json:"procedures"`
}

// PatientAddress returns the trimmed patient address, or "" when absent.
func (n NormalizedIntake) PatientAddress() string {
	return strings.TrimSpace(n.PatientInfo[FieldPatientAddress].String())
}

// FirstCPT returns the CPT code of the first procedure, or "" when there is none.
func (n NormalizedIntake) FirstCPT() string {
	if len(n.Procedures) == 0 {
		return ""
	}
	return strings.TrimSpace(n.Procedures[0][FieldCPTCode].String())
}
