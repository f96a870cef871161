package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lien-Gu/bookrank/internal/model"
	"github.com/lien-Gu/bookrank/internal/store"
)

const (
	defaultPageLimit  = 20
	maxPageLimit      = 100
	defaultHistoryDay = 30
	maxHistoryDays    = 365
)

func (s *Server) listRankings(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	rankings, err := s.stores.Rankings().ListRankings(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rankings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rankings": rankings, "count": len(rankings)})
}

func (s *Server) getRanking(w http.ResponseWriter, r *http.Request) {
	rankingID := chi.URLParam(r, "ranking_id")
	ranking, err := s.stores.Rankings().GetRanking(r.Context(), rankingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ranking not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load ranking")
		return
	}
	detail := rankingDetail{Ranking: ranking, Entries: []model.RankingEntry{}}
	snap, err := s.stores.Rankings().LatestEntries(r.Context(), rankingID)
	switch {
	case err == nil:
		detail.CapturedAt = &snap.CapturedAt
		detail.Entries = snap.Entries
	case errors.Is(err, store.ErrNotFound):
		// A ranking with no snapshots yet returns empty entries, not 404.
	default:
		writeError(w, http.StatusInternalServerError, "failed to load ranking entries")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) getRankingHistory(w http.ResponseWriter, r *http.Request) {
	rankingID := chi.URLParam(r, "ranking_id")
	if _, err := s.stores.Rankings().GetRanking(r.Context(), rankingID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ranking not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load ranking")
		return
	}
	days := queryDays(r, defaultHistoryDay)
	history, err := s.stores.Rankings().SnapshotHistory(r.Context(), rankingID, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ranking_id": rankingID,
		"days":       days,
		"snapshots":  history,
	})
}

type rankingDetail struct {
	model.Ranking
	CapturedAt *time.Time           `json:"captured_at,omitempty"`
	Entries    []model.RankingEntry `json:"entries"`
}

func pagination(r *http.Request) (limit, offset int) {
	limit = queryInt(r, "limit", defaultPageLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset = queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func queryDays(r *http.Request, def int) int {
	days := queryInt(r, "days", def)
	if days <= 0 {
		return def
	}
	if days > maxHistoryDays {
		return maxHistoryDays
	}
	return days
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
