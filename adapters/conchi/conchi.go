// Package conchi mounts a dispatcher in a chi router.
package conchi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Mount serves every request under prefix with d. The prefix is removed
// before dispatch, so resource paths are relative to it. An empty prefix or
// `/` mounts d at the root.
func Mount(r chi.Router, prefix string, d http.Handler) {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		r.Handle("/*", d)
		return
	}
	r.Mount(prefix, http.StripPrefix(prefix, d))
}
