package model

// GeocodeResult is the top-ranked match for an address query.
type GeocodeResult struct {
	Latitude          float64           `json:"latitude"`
	Longitude         float64           `json:"longitude"`
	DisplayName       string            `json:"display_name"`
	AddressComponents map[string]string `json:"address_components"`
	OriginalAddress   string            `json:"original_address"`
	Importance        *float64          `json:"importance,omitempty"`
}

// ReverseResult is the address found for a coordinate pair.
type ReverseResult struct {
	Latitude          float64           `json:"latitude"`
	Longitude         float64           `json:"longitude"`
	DisplayName       string            `json:"display_name"`
	AddressComponents map[string]string `json:"address_components"`
}
