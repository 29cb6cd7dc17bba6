// Package cbor provides a CBOR formatter for problem documents. Importing
// this package adds CBOR support to `conneg.DefaultFormats`.
package cbor

import (
	"io"

	"github.com/danielgtaylor/conneg"
	"github.com/fxamacker/cbor/v2"
)

var encMode, _ = cbor.EncOptions{
	Sort:          cbor.SortCanonical,
	ShortestFloat: cbor.ShortestFloat16,
	NaNConvert:    cbor.NaNConvert7e00,
	InfConvert:    cbor.InfConvertFloat16,
	IndefLength:   cbor.IndefLengthForbidden,
}.EncMode()

// DefaultCBORFormat encodes with canonical key order so equal documents
// produce equal bytes.
var DefaultCBORFormat = conneg.Format{
	Marshal: func(w io.Writer, v any) error {
		return encMode.NewEncoder(w).Encode(v)
	},
	Unmarshal: cbor.Unmarshal,
}

func init() {
	conneg.DefaultFormats["application/cbor"] = DefaultCBORFormat
	conneg.DefaultFormats["cbor"] = DefaultCBORFormat
}
