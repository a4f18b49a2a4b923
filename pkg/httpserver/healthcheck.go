package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Probe checks one dependency.
type Probe func(context.Context) error

// probeTimeout bounds every readiness probe.
const probeTimeout = 3 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Liveness always answers 200 {"status":"ok"}.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// Readiness runs every probe and answers 503 listing the failed ones.
func Readiness(log *slog.Logger, probes map[string]Probe) http.HandlerFunc {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		failed := make(map[string]string)
		for _, name := range names {
			if err := probes[name](ctx); err != nil {
				failed[name] = err.Error()
				if log != nil {
					log.WarnContext(ctx, "readiness probe failed", slog.String("probe", name), logger.Error(err))
				}
			}
		}

		if len(failed) > 0 {
			writeHealth(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Failed: failed})
			return
		}
		writeHealth(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

func writeHealth(w http.ResponseWriter, status int, body healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
