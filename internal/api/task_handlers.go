package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lien-Gu/bookrank/internal/model"
	"github.com/lien-Gu/bookrank/internal/store"
)

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	var status *model.TaskStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := model.TaskStatus(raw)
		switch st {
		case model.TaskStatusQueued, model.TaskStatusRunning,
			model.TaskStatusSucceeded, model.TaskStatusFailed:
			status = &st
		default:
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
	}
	limit, offset := pagination(r)
	tasks, err := s.stores.Tasks().ListTasks(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	task, err := s.stores.Tasks().GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

type crawlRequest struct {
	PageID string `json:"page_id"`
}

func (s *Server) triggerCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PageID == "" {
		writeError(w, http.StatusBadRequest, "missing page_id")
		return
	}
	if _, ok := s.cat.Page(req.PageID); !ok {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	task, err := s.trigger.TriggerNow(r.Context(), req.PageID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"task": task})
}
