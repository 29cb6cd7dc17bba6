// Package confiber mounts a dispatcher in a Fiber app.
package confiber

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Mount serves every request under prefix with d, with the prefix removed.
// Requests pass through the fasthttp to net/http adaptor, so d sees a regular
// `*http.Request`.
func Mount(app *fiber.App, prefix string, d http.Handler) {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		app.Use(adaptor.HTTPHandler(d))
		return
	}
	app.Use(prefix, adaptor.HTTPHandler(http.StripPrefix(prefix, d)))
}
