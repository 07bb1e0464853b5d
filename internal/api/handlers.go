package api

import (
    "context"
    "encoding/json"
    "net/http"

    logging "github.com/ipfs/go-log/v2"
    "github.com/kmatotek/WCPCLeaderboard/internal/models"
)

var log = logging.Logger("api")

// Board is the read side of a leaderboard service.
type Board[T any] interface {
    Get(ctx context.Context) ([]T, error)
}

type Handler struct {
    Codeforces Board[models.CodeforcesEntry]
    LeetCode   Board[models.LeetCodeEntry]
    CORSOrigin string
    // Metrics serves /metrics when set.
    Metrics http.Handler
}

func (h *Handler) Routes(mux *http.ServeMux) {
    mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
    mux.Handle("/api/codeforces-leaderboard", h.cors(boardHandler(h.Codeforces, "Failed to fetch leaderboard data")))
    mux.Handle("/api/leetcode-leaderboard", h.cors(boardHandler(h.LeetCode, "Failed to fetch Leetcode leaderboard data")))
    if h.Metrics != nil {
        mux.Handle("/metrics", h.Metrics)
    }
}

// boardHandler never exposes the cause of a failure to the client.
func boardHandler[T any](b Board[T], failMsg string) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet && r.Method != http.MethodHead {
            w.Header().Set("Allow", "GET, HEAD, OPTIONS")
            writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": http.StatusText(http.StatusMethodNotAllowed)})
            return
        }
        entries, err := b.Get(r.Context())
        if err != nil {
            log.Errorw("board request failed", "path", r.URL.Path, "err", err)
            writeJSON(w, http.StatusInternalServerError, map[string]string{"error": failMsg})
            return
        }
        if entries == nil {
            entries = []T{}
        }
        writeJSON(w, http.StatusOK, entries)
    }
}

func (h *Handler) cors(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if h.CORSOrigin != "" {
            w.Header().Set("Access-Control-Allow-Origin", h.CORSOrigin)
            w.Header().Set("Vary", "Origin")
        }
        if r.Method == http.MethodOptions {
            w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
            w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    if err := json.NewEncoder(w).Encode(v); err != nil {
        log.Warnw("writeJSON error", "err", err)
    }
}
