// Package yaml provides a YAML formatter for problem documents. Importing
// this package adds YAML support to `conneg.DefaultFormats`.
package yaml

import (
	"io"

	"github.com/danielgtaylor/conneg"
	"github.com/goccy/go-yaml"
)

// DefaultYAMLFormat encodes values using their `yaml` struct tags.
var DefaultYAMLFormat = conneg.Format{
	Marshal: func(w io.Writer, v any) error {
		return yaml.NewEncoder(w).Encode(v)
	},
	Unmarshal: yaml.Unmarshal,
}

func init() {
	conneg.DefaultFormats["application/yaml"] = DefaultYAMLFormat
	conneg.DefaultFormats["yaml"] = DefaultYAMLFormat
}
