package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers the HTML pages on mux. Static assets are served
// from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	staticFS, err := fs.Sub(StaticFS, "static")
	if err != nil {
		panic("web: embedded static dir missing: " + err.Error())
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /sessions/{id}", h.Session)
	mux.HandleFunc("POST /sessions/{id}/send", requireCSRF(h.SendStaged))
	mux.HandleFunc("POST /comments/{id}/resolve", requireCSRF(h.ResolveComment))
}
