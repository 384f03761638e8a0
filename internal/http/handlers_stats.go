package http

import (
	"log/slog"
	"net/http"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

// handleStats serves the aggregated dashboard payload. Results are cached
// per user and invalidated by every entry write.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	key := s.statsKey(userID)

	if stats, found := s.statsCache.Get(key); found {
		slog.DebugContext(r.Context(), "Stats cache hit", "user_id", userID)
		respondJSON(w, http.StatusOK, stats)
		return
	}

	entries, err := s.entries.ListEntries(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Stats query failed", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "stats failed")
		return
	}

	stats := core.Aggregate(entries)
	s.statsCache.Set(key, stats)
	slog.DebugContext(r.Context(), "Stats cached", "user_id", userID, "entry_count", stats.EntryCount)

	respondJSON(w, http.StatusOK, stats)
}
