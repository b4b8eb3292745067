package api

import (
	"net/http"

	"github.com/angelmondragon/maillot-backend/pkg/config"
)

// NewServer builds the HTTP server that cmd/api runs.
func NewServer(cfg *config.Config, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       cfg.App.ReadTimeout,
		ReadHeaderTimeout: cfg.App.ReadTimeout,
		WriteTimeout:      cfg.App.WriteTimeout,
	}
}
