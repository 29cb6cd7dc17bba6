package conneg

import (
	"encoding/json"
	"io"
)

// Format marshals and unmarshals problem documents for one content type.
type Format struct {
	Marshal   func(writer io.Writer, v any) error
	Unmarshal func(data []byte, v any) error
}

// DefaultJSONFormat is the default JSON formatter that can be set in the
// `Config.Formats` map.
//
//	config := conneg.Config{}
//	config.Formats = map[string]conneg.Format{
//		"application/json": conneg.DefaultJSONFormat,
//		"json":             conneg.DefaultJSONFormat,
//	}
var DefaultJSONFormat = Format{
	Marshal: func(w io.Writer, v any) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	},
	Unmarshal: json.Unmarshal,
}

// DefaultFormats is used when `Config.Formats` is nil. Importing
// `formats/cbor` or `formats/yaml` adds those formats here:
//
//	import _ "github.com/danielgtaylor/conneg/formats/cbor"
var DefaultFormats = map[string]Format{
	"application/json": DefaultJSONFormat,
	"json":             DefaultJSONFormat,
}
