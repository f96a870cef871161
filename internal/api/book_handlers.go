package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lien-Gu/bookrank/internal/model"
	"github.com/lien-Gu/bookrank/internal/store"
)

// maxBatchIDs bounds one batch lookup request.
const maxBatchIDs = 100

type bookDetail struct {
	model.Book
	Snapshot   *model.BookSnapshot `json:"snapshot,omitempty"`
	CapturedAt *time.Time          `json:"captured_at,omitempty"`
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "book_id")
	book, err := s.stores.Books().GetBook(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load book")
		return
	}
	detail := bookDetail{Book: book}
	snap, err := s.stores.Books().LatestBookSnapshot(r.Context(), bookID)
	switch {
	case err == nil:
		detail.Snapshot = &snap
		detail.CapturedAt = &snap.CapturedAt
	case errors.Is(err, store.ErrNotFound):
	default:
		writeError(w, http.StatusInternalServerError, "failed to load book snapshot")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) getBookTrend(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "book_id")
	if _, err := s.stores.Books().GetBook(r.Context(), bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load book")
		return
	}
	days := queryDays(r, defaultHistoryDay)
	trend, err := s.stores.Books().BookTrend(r.Context(), bookID, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load trend")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"book_id":   bookID,
		"days":      days,
		"snapshots": trend,
	})
}

func (s *Server) searchBooks(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit, offset := pagination(r)
	books, err := s.stores.Books().SearchBooks(r.Context(), query, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books, "count": len(books)})
}

type batchRequest struct {
	IDs []string `json:"book_ids"`
}

func (s *Server) getBookBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "book_ids required")
		return
	}
	if len(req.IDs) > maxBatchIDs {
		writeError(w, http.StatusBadRequest, "too many ids")
		return
	}
	books, err := s.stores.Books().GetBooks(r.Context(), req.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "batch lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books, "count": len(books)})
}
