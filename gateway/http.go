package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rustyeddy/pretrade/account"
	"github.com/rustyeddy/pretrade/metrics"
)

// ErrVaRNotReady is the body served by /var before the first cycle.
const ErrVaRNotReady = "VaR not calculated yet."

// Handler serves the read-only query surface:
//
//	GET /var              latest VaR result
//	GET /var/history?n=   recent results, newest first
//	GET /accounts/{id}    flat account record
//	GET /metrics          Prometheus metrics
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /var", g.handleVaR)
	mux.HandleFunc("GET /var/history", g.handleVaRHistory)
	mux.HandleFunc("GET /accounts/{id}", g.handleAccount)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

func (g *Gateway) handleVaR(w http.ResponseWriter, r *http.Request) {
	res, ok := g.Latest.Get()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, ErrVaRNotReady)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (g *Gateway) handleVaRHistory(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, g.Latest.History(n))
}

func (g *Gateway) handleAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), g.storeTimeout)
	defer cancel()

	st, err := g.Store.Get(ctx, r.PathValue("id"))
	switch {
	case errors.Is(err, account.ErrNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case err != nil:
		g.log.Warn().Err(err).Str("account_id", r.PathValue("id")).Msg("account lookup")
		writeError(w, http.StatusServiceUnavailable, "risk store unavailable")
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
