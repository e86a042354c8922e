package http

import (
	"net/http"
)

const (
	pathRoot    = "/"
	pathHealth  = "/health"
	pathShorten = "/api/shorten"
)

// RouterConfig carries the request-scoped settings of the shorten endpoint
type RouterConfig struct {
	APIKey         string
	ClientIPHeader string
}

// Router dispatches requests by path and method:
//
//	GET|HEAD /            landing page
//	GET|HEAD /health      liveness
//	POST     /api/shorten auth -> rate limit -> shorten (other verbs: 405)
//	GET|HEAD /{slug}      redirect (api* and health* never resolve)
//	anything else         404
type Router struct {
	handler *Handler
	shorten http.Handler
}

// NewRouter builds the routing decision tree. Auth runs before rate limiting.
func NewRouter(h *Handler, limiter RateLimiter, cfg RouterConfig) *Router {
	shorten := Chain(
		APIKeyMiddleware(cfg.APIKey),
		RateLimitMiddleware(limiter, cfg.ClientIPHeader, h.logger),
	)(http.HandlerFunc(h.Shorten))

	return &Router{
		handler: h,
		shorten: shorten,
	}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	readOnly := r.Method == http.MethodGet || r.Method == http.MethodHead

	switch {
	case path == pathShorten:
		if r.Method != http.MethodPost {
			rt.handler.MethodNotAllowed(w, r)
			return
		}
		rt.shorten.ServeHTTP(w, r)

	case !readOnly:
		rt.handler.NotFound(w, r)

	case path == pathRoot:
		rt.handler.ServeLanding(w, r)

	case path == pathHealth:
		rt.handler.HealthCheck(w, r)

	default:
		rt.handler.Redirect(w, r)
	}
}
