package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/intake-cli/internal/model"
)

// Feature roles.
const (
	RolePatient  = "patient"
	RoleProvider = "provider"
)

// FeatureCollection renders the patient location and ranked providers of a
// resolved order as GeoJSON points. Orders without coordinates produce an
// empty collection.
func FeatureCollection(r *model.MergedResult) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	if r == nil {
		return fc
	}

	if loc := r.ProviderMapping.PatientLocation; loc != nil {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.OrderID,
			Geometry: point(loc.Latitude, loc.Longitude),
			Properties: map[string]any{
				"role":     RolePatient,
				"order_id": r.OrderID,
				"address":  loc.Address,
			},
		})
	} else if g := r.MappingData.GeocodeData; g != nil {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.OrderID,
			Geometry: point(g.Latitude, g.Longitude),
			Properties: map[string]any{
				"role":     RolePatient,
				"order_id": r.OrderID,
				"address":  g.DisplayName,
			},
		})
	}

	for _, p := range r.ProviderMapping.Providers {
		fc.Features = append(fc.Features, ProviderFeature(p))
	}
	return fc
}

// ProviderFeature renders one ranked provider as a GeoJSON point.
func ProviderFeature(p model.RankedProvider) *geojson.Feature {
	props := map[string]any{
		"role":           RoleProvider,
		"name":           p.DisplayName,
		"network":        p.Network,
		"city":           p.City,
		"state":          p.State,
		"distance_miles": p.DistanceMiles,
	}
	if p.Rate != nil {
		props["rate"] = *p.Rate
	}
	if p.CleanTIN != nil {
		props["tin"] = *p.CleanTIN
	}
	return &geojson.Feature{
		ID:         p.PrimaryKey,
		Geometry:   point(p.Latitude, p.Longitude),
		Properties: props,
	}
}

// point builds a WGS84 point; GeoJSON orders coordinates lon, lat.
func point(lat, lon float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
}
