// Package conmux mounts a dispatcher in a gorilla/mux router.
package conmux

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// Mount serves every request under prefix with d and returns the route so
// that further matchers, like `Host`, can be added. The prefix is removed
// before dispatch.
func Mount(r *mux.Router, prefix string, d http.Handler) *mux.Route {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return r.PathPrefix("/").Handler(d)
	}
	return r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, d))
}
