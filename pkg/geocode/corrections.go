package geocode

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadCorrections reads extra state-token corrections from a YAML file of
// the form:
//
//	corrections:
//	  Texs: TX
//	  Penn: PA
func LoadCorrections(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: read corrections %s", path)
	}

	var wrapper struct {
		Corrections map[string]string `yaml:"corrections"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "geocode: parse corrections")
	}
	if wrapper.Corrections == nil {
		wrapper.Corrections = map[string]string{}
	}
	return wrapper.Corrections, nil
}
