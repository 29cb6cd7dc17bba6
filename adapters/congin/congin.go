// Package congin mounts a dispatcher in a gin engine or group.
package congin

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// Mount serves every request below prefix with d. The group base path and
// the prefix are removed before dispatch. Pass `&engine.RouterGroup` to
// mount on an engine directly.
func Mount(r *gin.RouterGroup, prefix string, d http.Handler) {
	prefix = strings.TrimSuffix(prefix, "/")
	full := strings.TrimSuffix(path.Join(r.BasePath(), prefix), "/")

	h := d
	if full != "" {
		h = http.StripPrefix(full, d)
	}
	r.Any(prefix+"/*path", gin.WrapH(h))
}
