package httptransport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"reusability-token/internal/mcpserver"
	"reusability-token/internal/report"
	"reusability-token/internal/ws"
)

// NewRouter exposes a run read-only: JSON snapshots, a live feed over SSE and
// websocket, Prometheus metrics and MCP tools.
func NewRouter(runs report.Reader) *chi.Mux {
	handlers := NewRunHandlers(runs)
	wsSrv := ws.NewServer(runs.Feed())
	mcpSrv := mcpserver.New(runs)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", handlers.Health())
	r.Handle("/metrics", promhttp.Handler())

	r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpSrv.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(APILogMiddleware())
			r.Get("/run", handlers.Run())
			r.Get("/days", handlers.Days())
			r.Get("/days/latest", handlers.LatestDay())
			r.Get("/days/{day}", handlers.Day())
			r.Get("/shops/blacklisted", handlers.BlacklistedShops())
		})
		r.Get("/feed/events", FeedSSEHandler(runs.Feed()))
		r.Get("/feed/ws", wsSrv.HandleWS)
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	var routes []routeDef
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	fmt.Fprintf(&b, "Registered routes (%d):\n", len(routes))
	for _, rt := range routes {
		fmt.Fprintf(&b, "  %-6s %s\n", rt.Method, rt.Path)
	}
	log.Debug().Msg(strings.TrimSpace(b.String()))
}
