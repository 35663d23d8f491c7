package model

// ProviderRecord is a single row of the provider store.
type ProviderRecord struct {
	PrimaryKey   string  `json:"primary_key"`
	DisplayName  string  `json:"display_name"`
	TIN          string  `json:"tin"`
	CleanTIN     *string `json:"clean_tin"`
	State        string  `json:"state"`
	Status       string  `json:"status"`
	ProviderType string  `json:"provider_type"`
	Network      string  `json:"network"`
	City         string  `json:"city"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Email        string  `json:"email,omitempty"`
	Fax          string  `json:"fax,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Website      string  `json:"website,omitempty"`
}

// RankedProvider is a provider with its distance from the patient and,
// when a procedure code was supplied, its negotiated rate.
type RankedProvider struct {
	ProviderRecord
	DistanceMiles float64  `json:"distance_miles"`
	Rate          *float64 `json:"rate"`
}
