// Package conhttprouter mounts a dispatcher in an httprouter router.
package conhttprouter

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// Methods are registered for the mount. httprouter has no any-method route,
// so each one gets its own catch-all.
var Methods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// Mount serves every request under prefix with d, with the prefix removed.
// The catch-all must not overlap other routes of the router.
func Mount(r *httprouter.Router, prefix string, d http.Handler) {
	prefix = strings.TrimSuffix(prefix, "/")
	h := d
	if prefix != "" {
		h = http.StripPrefix(prefix, d)
	}
	for _, method := range Methods {
		r.Handler(method, prefix+"/*path", h)
	}
}
