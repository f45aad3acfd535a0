// Package handler is the serverless entry point; every request is rewritten to
// Handler, which serves it through the Fiber app.
package handler

import (
	"net/http"
	"sync"

	"armory-backend/bootstrap"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog/log"
)

var (
	once    sync.Once
	served  http.HandlerFunc
	initErr error
)

// Handler builds the app on the first request of a cold start and reuses it.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		app, err := bootstrap.New()
		if err != nil {
			initErr = err
			log.Error().Err(err).Msg("serverless: app init failed")
			return
		}
		served = adaptor.FiberApp(app)
	})
	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"error","error":{"message":"Service unavailable","statusCode":503}}`))
		return
	}
	r.RequestURI = r.URL.String()
	served(w, r)
}
