package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/hub"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/ws"
)

func SetupRoutes(h *hub.Hub, gatherer prometheus.Gatherer, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	a := &API{hub: h, log: log.Named("http")}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLog(a.log))

	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/tournaments", a.Tournaments)
	r.Route("/tournaments/{slug}", func(r chi.Router) {
		r.Post("/session", a.StartSession)
		r.Delete("/session", a.StopSession)
		r.Get("/matches", a.Matches)
		r.Put("/filter", a.SetFilter)
		r.Get("/filter/options", a.FilterOptions)
		r.Post("/matches/{pk}/report", a.Report)
		r.Post("/matches/{pk}/ring", a.Ring)
		r.Post("/matches/{pk}/winner", a.Winner)
		r.Patch("/matches/{pk}", a.Patch)
		r.Get("/alerts", a.Alerts)
		r.Get("/ws", ws.Handler(h, log))
	})
	return r
}

func requestLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
