package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Embed the single-page UI.
//
//go:embed static
var StaticFS embed.FS

// Handler serves the embedded UI. It handles SPA routing by serving index.html for
// every path that is not an embedded file, API route or health check.
func Handler() http.Handler {
	return http.HandlerFunc(ServeApp)
}

// ServeApp serves one request for the embedded UI.
func ServeApp(w http.ResponseWriter, r *http.Request) {
	requestPath := r.URL.Path

	// Don't serve UI for API routes or health check
	if strings.HasPrefix(requestPath, "/api/") || requestPath == "/health" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	// Root path or empty - serve index.html directly
	if requestPath == "/" || requestPath == "" {
		serveIndexHTML(w)
		return
	}

	// Try to serve the requested file from the embedded filesystem
	filePath := path.Join("static", strings.TrimPrefix(path.Clean(requestPath), "/"))

	fileInfo, err := fs.Stat(StaticFS, filePath)
	if err == nil && !fileInfo.IsDir() {
		http.ServeFileFS(w, r, StaticFS, filePath)
		return
	}

	// File doesn't exist or is a directory - serve index.html for SPA routing
	serveIndexHTML(w)
}

// serveIndexHTML serves the index.html file directly from the embedded filesystem
func serveIndexHTML(w http.ResponseWriter) {
	data, err := fs.ReadFile(StaticFS, "static/index.html")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
