package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spotshot-backend/internal/engine"
	"github.com/DoyleJ11/spotshot-backend/internal/hub"
	"github.com/DoyleJ11/spotshot-backend/internal/store"
	"github.com/DoyleJ11/spotshot-backend/internal/ws"
)

const (
	defaultResults = 20
	maxResults     = 100
	qrSize         = 320
)

type health struct {
	Status string `json:"status"`
	hub.Stats
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.Stats, 1)
		select {
		case h.Inbox() <- hub.GetStats{Reply: reply}:
		case <-h.Done():
			writeJSON(w, http.StatusServiceUnavailable, health{Status: "shutting down"})
			return
		case <-r.Context().Done():
			return
		}

		select {
		case stats := <-reply:
			writeJSON(w, http.StatusOK, health{Status: "ok", Stats: stats})
		case <-h.Done():
			writeJSON(w, http.StatusServiceUnavailable, health{Status: "shutting down"})
		case <-time.After(2 * time.Second):
			writeJSON(w, http.StatusServiceUnavailable, health{Status: "hub not responding"})
		}
	}
}

func GameConfig(rules engine.Rules) http.HandlerFunc {
	cfg := ws.GameConfig(rules, 0)
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cfg)
	}
}

// Results lists recently finished games, newest first.
func Results(s store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultResults
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxResults)
		}

		results, err := s.RecentResults(r.Context(), limit)
		if err != nil {
			log.Error("list results", zap.Error(err))
			http.Error(w, "failed to load results", http.StatusInternalServerError)
			return
		}
		if results == nil {
			results = []store.GameResult{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}

// Invite renders a QR code pointing at the game. With ?game_id= the code
// joins that specific session.
func Invite(publicURL string, log *zap.Logger) http.HandlerFunc {
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

		if id := r.URL.Query().Get("game_id"); id != "" {
			u, err := url.Parse(target)
			if err != nil {
				http.Error(w, "bad public url", http.StatusInternalServerError)
				return
			}
			q := u.Query()
			q.Set("game_id", id)
			u.RawQuery = q.Encode()
			target = u.String()
		}

		png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
		if err != nil {
			log.Error("qr generation failed", zap.Error(err))
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
