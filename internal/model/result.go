package model

// Stage statuses reported in a MergedResult.
const (
	StatusSuccess          = "success"
	StatusDisabled         = "disabled"
	StatusNoAddressFound   = "no_address_found"
	StatusGeocodingFailed  = "geocoding_failed"
	StatusNoProvidersFound = "no_providers_found"
	StatusError            = "error"
)

// MappingData holds the geocoding stage output.
type MappingData struct {
	Status      string         `json:"status"`
	GeocodeData *GeocodeResult `json:"geocode_data,omitempty"`
	MapPath     string         `json:"map_path,omitempty"`
}

// PatientLocation is the resolved patient coordinate used for matching.
type PatientLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// ProviderMapping holds the provider matching stage output.
type ProviderMapping struct {
	Status          string           `json:"status"`
	Message         string           `json:"message,omitempty"`
	PatientLocation *PatientLocation `json:"patient_location,omitempty"`
	Providers       []RankedProvider `json:"providers"`
}

// MergedResult is the best-effort outcome of resolving one order.
type MergedResult struct {
	OrderID         string           `json:"order_id"`
	ExtractedData   NormalizedIntake `json:"extracted_data"`
	MappingData     MappingData      `json:"mapping_data"`
	ProviderMapping ProviderMapping  `json:"provider_mapping"`
}
