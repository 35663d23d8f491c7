package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/geo"
	"github.com/sells-group/intake-cli/internal/model"
)

const (
	formatJSON    = "json"
	formatGeoJSON = "geojson"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}

// printResult writes result as a MergedResult document or, for geojson, as a
// FeatureCollection of the patient and ranked providers.
func printResult(w io.Writer, result *model.MergedResult, format string) error {
	switch format {
	case formatGeoJSON:
		return printJSON(w, geo.FeatureCollection(result))
	case formatJSON, "":
		return printJSON(w, result)
	default:
		return eris.Errorf("unknown output format %q (want json or geojson)", format)
	}
}
