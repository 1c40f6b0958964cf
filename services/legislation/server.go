package legislation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"parlwatch-backend/lib/util/serviceutil"
)

type runState struct {
	mu      sync.Mutex
	running bool
	last    *RunResult
	lastErr string
	lastAt  time.Time
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJson(w, status, map[string]string{"error": message})
}

// RegisterHandlers mounts the REST surface on mux:
//
//	GET  /api/legislation?year=YYYY   persisted dataset for a year
//	GET  /api/status                  run state + last result
//	POST /api/scrape                  trigger a run (single-flight)
//
// Every route goes through the bearer-token check.
func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	state := &runState{}

	handle := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, serviceutil.VerifyAccessToken(s.config.AccessToken, handler))
	}

	handle("GET /api/legislation", func(w http.ResponseWriter, r *http.Request) {
		year := r.URL.Query().Get("year")
		if year == "" {
			year = strconv.Itoa(time.Now().Year())
		}
		dataset, err := s.LoadDataset(year)
		if err != nil {
			slog.Error("failed to load dataset", "year", year, "err", err)
			writeError(w, http.StatusInternalServerError, "failed to load dataset")
			return
		}
		writeJson(w, http.StatusOK, dataset)
	})

	handle("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()

		body := map[string]any{"running": state.running}
		if state.last != nil {
			body["last_run"] = state.last
			body["last_run_at"] = state.lastAt
		}
		if state.lastErr != "" {
			body["last_error"] = state.lastErr
		}
		writeJson(w, http.StatusOK, body)
	})

	handle("POST /api/scrape", func(w http.ResponseWriter, r *http.Request) {
		force := r.URL.Query().Get("force") == "true"

		state.mu.Lock()
		if state.running {
			state.mu.Unlock()
			writeError(w, http.StatusConflict, "a scrape is already running")
			return
		}
		state.running = true
		state.mu.Unlock()

		// runs outlive the triggering request, so detach from its context
		go func() {
			result, err := s.RunScrape(context.Background(), force)

			state.mu.Lock()
			defer state.mu.Unlock()
			state.running = false
			state.last = &result
			state.lastAt = time.Now().UTC()
			state.lastErr = ""
			if err != nil {
				state.lastErr = err.Error()
				slog.Error("scrape run failed", "err", err)
			}
		}()

		writeJson(w, http.StatusAccepted, map[string]string{"status": "started"})
	})
}
