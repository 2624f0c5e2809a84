package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
	"party-quiz-service/internal/app"
	"party-quiz-service/internal/domain"
)

const (
	qrSize             = 320
	defaultResultLimit = 10
	maxResultLimit     = 100
)

// ResultHistory lists archived games for a room code.
type ResultHistory interface {
	Recent(ctx context.Context, roomCode string, limit int) ([]domain.GameResult, error)
}

// RouterConfig holds the HTTP surface settings. Results is optional.
type RouterConfig struct {
	PublicURL   string
	CORSOrigins []string
	Results     ResultHistory
}

// NewRouter wires the websocket gateway, health, diagnostics and join QR codes.
func NewRouter(service *app.QuizService, hub *Hub, ws *WSHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/debug", func(r chi.Router) {
		r.Get("/rooms", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, service.Snapshot())
		})
		r.Get("/rooms/{code}", func(w http.ResponseWriter, r *http.Request) {
			snap, err := service.RoomSnapshot(chi.URLParam(r, "code"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, snap)
		})
		r.Get("/connections", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, hub.Stats())
		})
	})

	r.Get("/rooms/{code}/qr", qrHandler(service, cfg.PublicURL))
	if cfg.Results != nil {
		r.Get("/rooms/{code}/results", resultsHandler(cfg.Results))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// qrHandler renders a PNG that points players at the join page for a room.
func qrHandler(service *app.QuizService, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if _, err := service.RoomSnapshot(code); err != nil {
			writeError(w, err)
			return
		}

		png, err := qrcode.Encode(joinURL(r, publicURL, code), qrcode.Medium, qrSize)
		if err != nil {
			log.Error().Err(err).Str("room", code).Msg("qr generation failed")
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func resultsHandler(results ResultHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultResultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid limit"})
				return
			}
			limit = min(n, maxResultLimit)
		}
		list, err := results.Recent(r.Context(), chi.URLParam(r, "code"), limit)
		if err != nil {
			log.Error().Err(err).Msg("list game results")
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func joinURL(r *http.Request, publicURL, code string) string {
	base := strings.TrimRight(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?code=" + code
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrRoomNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorPayload{Message: failure(err).Error})
}
