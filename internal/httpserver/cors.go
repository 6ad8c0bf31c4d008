package httpserver

import (
	"net/http"
	"strings"

	"github.com/fdg312/fitclub/internal/config"
)

const (
	corsAllowMethods  = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	corsAllowHeaders  = "Authorization,Content-Type"
	corsExposeHeaders = "Content-Disposition,Retry-After"
	corsMaxAge        = "600"
)

// corsPolicy решает, какие Origin получают CORS заголовки.
// "*" в списке разрешает любой Origin, но без credentials.
type corsPolicy struct {
	origins     map[string]bool
	any         bool
	credentials bool
}

func newCORSPolicy(cfg *config.Config) corsPolicy {
	p := corsPolicy{origins: make(map[string]bool, len(cfg.CORSAllowedOrigins))}
	for _, o := range cfg.CORSAllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.any = true
		default:
			p.origins[o] = true
		}
	}
	p.credentials = cfg.CORSAllowCredentials && !p.any
	return p
}

func (p corsPolicy) allows(origin string) bool {
	return p.any || p.origins[origin]
}

// CORSMiddleware добавляет CORS заголовки для разрешённых Origin и отвечает
// на preflight. Для чужого Origin preflight получает 204 без заголовков.
func CORSMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		allowed := policy.allows(origin)
		if allowed {
			h.Set("Access-Control-Allow-Origin", origin)
			if policy.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if allowed {
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		}
		next.ServeHTTP(w, r)
	})
}
