package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/slot-draft-backend/internal/directory"
	"github.com/DoyleJ11/slot-draft-backend/internal/session"
	"github.com/DoyleJ11/slot-draft-backend/internal/ws"
)

type Deps struct {
	Session   *session.Session
	Directory *directory.Directory
	// Admin is the identity manual adds are made as.
	Admin     string
	PublicURL string
	WS        ws.Options
	Log       *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", Healthz)
	r.Get("/qr", QR(d.PublicURL))
	r.Get("/get_names", GetNames(d.Directory))
	r.Get("/ws/{userName}", ws.Handler(d.Session, log.Named("ws"), d.WS))

	r.Post("/start_round", StartRound(d.Session, log))
	r.Post("/commit_calendar", CommitCalendar(d.Session, log))
	r.Post("/reset_session", ResetSession(d.Session, log))
	r.Post("/set_week_mode/{mode}", SetWeekMode(d.Session))
	r.Post("/admin/manual_add", ManualAdd(d.Session, d.Admin, log))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
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
