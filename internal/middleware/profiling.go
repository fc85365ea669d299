// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
)

// ProfilingConfig configures the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether the pprof endpoints are exposed.
	// Development only; profiles leak memory contents and runtime
	// internals.
	Enabled bool

	// Environment gates a second check: production is refused even
	// when Enabled is set.
	Environment string
}

// Profiling exposes the pprof handlers under /debug/pprof/* when
// enabled: the index, heap/goroutine/allocs and friends via Index, plus
// the cmdline, profile, symbol, and trace handlers. With profiling
// disabled, or in a production environment, requests pass straight
// through to the routes.
func Profiling(config ProfilingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !config.Enabled {
			return next
		}

		if config.Environment == "production" || config.Environment == "prod" {
			slog.Error("refusing to enable profiling in production",
				"environment", config.Environment,
			)
			return next
		}

		slog.Warn("pprof endpoints enabled",
			"environment", config.Environment,
			"endpoints", "/debug/pprof/*",
		)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/debug/pprof") {
				next.ServeHTTP(w, r)
				return
			}

			switch r.URL.Path {
			case "/debug/pprof/cmdline":
				pprof.Cmdline(w, r)
			case "/debug/pprof/profile":
				pprof.Profile(w, r)
			case "/debug/pprof/symbol":
				pprof.Symbol(w, r)
			case "/debug/pprof/trace":
				pprof.Trace(w, r)
			default:
				// Index also serves the named runtime profiles
				// (/debug/pprof/heap, goroutine, allocs, ...).
				pprof.Index(w, r)
			}
		})
	}
}
