package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func Handler() http.Handler {
	// Serve the UI against the OpenAPI spec published at root.
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"),
	)
}
