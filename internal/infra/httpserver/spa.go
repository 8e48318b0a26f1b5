package httpserver

import (
	"net/http"
	"path/filepath"
	"strings"
)

// clientRoutes are the pages of the web client. Anything else outside /v1
// falls through to the JSON 404.
var clientRoutes = []string{
	"/",
	"/login",
	"/dashboard",
	"/user-management",
	"/ai-query-interface",
	"/pdf-upload-management",
	"/financial-data-analysis",
}

// spa serves index.html for client routes and static files under /assets.
type spa struct {
	root  string
	files http.Handler
}

func newSPA(root string) *spa {
	return &spa{root: root, files: http.FileServer(http.Dir(root))}
}

func (s *spa) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if strings.HasPrefix(req.URL.Path, "/assets/") {
		s.files.ServeHTTP(w, req)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, req, filepath.Join(s.root, "index.html"))
}
