package routes

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// clientRoutes are the web client's pages; they all render index.html
var clientRoutes = map[string]bool{
	"/":         true,
	"/signup":   true,
	"/home":     true,
	"/biodata":  true,
	"/settings": true,
	"/nickname": true,
}

// SPAHandler serves the built web client. Existing files are served as
// is; client routes and other extensionless paths fall back to index.html.
type SPAHandler struct {
	dir   string
	files http.Handler
}

// NewSPAHandler serves the client found in dir
func NewSPAHandler(dir string) *SPAHandler {
	return &SPAHandler{dir: dir, files: http.FileServer(http.Dir(dir))}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := path.Clean("/" + r.URL.Path)
	if clientRoutes[p] {
		h.index(w, r)
		return
	}

	info, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(p)))
	switch {
	case err == nil && !info.IsDir():
		h.files.ServeHTTP(w, r)
	case path.Ext(p) == "" && !strings.HasPrefix(p, "/api/"):
		h.index(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SPAHandler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
}
