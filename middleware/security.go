package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross origin access for browser clients.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed-origins" yaml:"allowed-origins"`
	AllowedMethods   []string `mapstructure:"allowed-methods" yaml:"allowed-methods"`
	AllowedHeaders   []string `mapstructure:"allowed-headers" yaml:"allowed-headers"`
	ExposedHeaders   []string `mapstructure:"exposed-headers" yaml:"exposed-headers"`
	AllowCredentials bool     `mapstructure:"allow-credentials" yaml:"allow-credentials"`
	MaxAge           int      `mapstructure:"max-age" yaml:"max-age" default:"600"`
}

// SecurityConfig configures SecurityMiddleware.
type SecurityConfig struct {
	CORS   CORSConfig `mapstructure:"cors" yaml:"cors"`
	Helmet bool       `mapstructure:"helmet" yaml:"helmet" default:"true"`
	// RequestSize rejects bodies whose declared length is larger; 0 disables.
	RequestSize int64 `mapstructure:"-" yaml:"-"`
}

type SecurityMiddleware struct {
	cors        CORSConfig
	helmet      bool
	requestSize int64
}

func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{
		cors:        config.CORS,
		helmet:      config.Helmet,
		requestSize: config.RequestSize,
	}
}

func (s *SecurityMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.requestSize > 0 && r.ContentLength > s.requestSize {
			http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
			return
		}

		if s.cors.Enabled {
			s.applyCORS(w, r)
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		if s.helmet {
			s.applyHelmet(w)
		}

		next.ServeHTTP(w, r)
	})
}

func (s *SecurityMiddleware) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	h := w.Header()
	for _, allowed := range s.cors.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			h.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				h.Add("Vary", "Origin")
			}
			break
		}
	}

	h.Set("Access-Control-Allow-Methods", strings.Join(s.cors.AllowedMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(s.cors.AllowedHeaders, ", "))
	if len(s.cors.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(s.cors.ExposedHeaders, ", "))
	}
	if s.cors.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Set("Access-Control-Max-Age", strconv.Itoa(s.cors.MaxAge))
}

func (s *SecurityMiddleware) applyHelmet(w http.ResponseWriter) {
	h := w.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}
