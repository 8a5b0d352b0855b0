package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/slot-draft-backend/internal/directory"
	"github.com/DoyleJ11/slot-draft-backend/internal/engine"
	"github.com/DoyleJ11/slot-draft-backend/internal/session"
	"github.com/DoyleJ11/slot-draft-backend/internal/slot"
)

const qrSize = 320

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, statusResponse{Status: "error", Message: msg})
}

// statusFor maps a session error to an HTTP status.
func statusFor(err error) int {
	switch session.Kind(err) {
	case session.KindValidation:
		return http.StatusBadRequest
	case session.KindConflict:
		return http.StatusConflict
	case session.KindForbidden:
		return http.StatusForbidden
	case session.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// manualAddStatus folds every caller mistake into 400 and everything else into 500.
func manualAddStatus(err error) int {
	if statusFor(err) < http.StatusInternalServerError {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func StartRound(s *session.Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := s.StartRound(r.Context())
		switch {
		case errors.Is(err, engine.ErrNoParticipants):
			// Not a failure of the server; the caller just has nobody to deal in.
			writeError(w, http.StatusOK, "No participating users are connected.")
			return
		case err != nil:
			log.Warn("start round failed", zap.Error(err))
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Status    string   `json:"status"`
			TurnOrder []string `json:"turn_order"`
		}{Status: "round started", TurnOrder: order})
	}
}

func CommitCalendar(s *session.Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Inserts already sent should finish even if the caller goes away.
		n, err := s.CommitCalendar(context.WithoutCancel(r.Context()))
		switch {
		case errors.Is(err, session.ErrNothingToCommit):
			writeError(w, http.StatusOK, "There are no new slots to commit.")
			return
		case err != nil:
			log.Error("commit failed", zap.Error(err))
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Status         string `json:"status"`
			CommittedCount int    `json:"committed_count"`
		}{Status: "success", CommittedCount: n})
	}
}

func ResetSession(s *session.Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.ResetSession(r.Context()); err != nil {
			log.Warn("reset failed", zap.Error(err))
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Session reset."})
	}
}

func SetWeekMode(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "mode"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "week mode must be 0, 1 or 2")
			return
		}
		mode, err := s.SetWeekMode(r.Context(), n)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Status   string `json:"status"`
			WeekMode int    `json:"week_mode"`
		}{Status: "success", WeekMode: int(mode)})
	}
}

type manualAddRequest struct {
	Name  string `json:"name"`
	Day   string `json:"day"`
	Time  string `json:"time"`
	Floor string `json:"floor"`
}

// ManualAdd books on behalf of admin, the configured admin identity.
func ManualAdd(s *session.Session, admin string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req manualAddRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		id, err := slot.New(req.Day, req.Time, req.Floor)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		initials, err := s.ManualAdd(context.WithoutCancel(r.Context()), admin, req.Name, id)
		if err != nil {
			log.Warn("manual add failed", zap.Stringer("slot", id), zap.String("name", req.Name), zap.Error(err))
			writeError(w, manualAddStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Status  string `json:"status"`
			SlotID  string `json:"slot_id"`
			Initial string `json:"initial"`
		}{Status: "success", SlotID: id.String(), Initial: initials})
	}
}

func GetNames(dir *directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dir.Names())
	}
}

// QR renders the board address as a PNG so people in the room can scan it.
func QR(publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := publicURL
		if target == "" {
			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}
			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
				scheme = proto
			}
			target = scheme + "://" + r.Host + "/"
		}

		png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
