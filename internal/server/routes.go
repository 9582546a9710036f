// Package server wires HTTP handlers into a ServeMux for the WinChat
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, the WebSocket endpoint, and the static frontend
// when a directory is configured.
func SetupRoutes(h *Handler, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/ws", h.ServeWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	} else {
		mux.HandleFunc("/", h.Health)
	}
	return mux
}
