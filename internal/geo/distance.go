// Package geo provides great-circle distance and GeoJSON output for resolved
// orders.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used for distance ranking.
const EarthRadiusMiles = 3956.0

// HaversineMiles returns the great-circle distance in miles between two
// points given in decimal degrees.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// RoundMiles rounds a distance to two decimals for display.
func RoundMiles(d float64) float64 {
	return math.Round(d*100) / 100
}
