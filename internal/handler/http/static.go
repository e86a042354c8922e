package http

import (
	"bytes"
	_ "embed"
	"net/http"
	"time"
)

//go:embed web/index.html
var landingPage []byte

// startedAt is used as Last-Modified for the embedded landing page
var startedAt = time.Now()

// ServeLanding serves the landing page for GET and HEAD /
func (h *Handler) ServeLanding(w http.ResponseWriter, r *http.Request) {
	http.ServeContent(w, r, "index.html", startedAt, bytes.NewReader(landingPage))
}
