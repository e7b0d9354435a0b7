package bootstrap

import (
	"net/http"

	"hst-backend/internal/config"
	"hst-backend/internal/interfaces/router"
)

// Handler builds the app for serverless deployments (the api handler imports
// this package, not internal). The services live as long as the process.
func Handler() (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, _, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}
	return router.Handler(app), nil
}
