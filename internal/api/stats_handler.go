package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskstream/taskstream/internal/api/shared"
	"github.com/taskstream/taskstream/internal/store"
)

// statsDefaultPageSize bounds unpaginated replica reads.
const statsDefaultPageSize = 50

// StatsHandler serves read-only reports over the statistics replica.
// The replica trails the record store slightly; these endpoints make no
// freshness promises.
type StatsHandler struct {
	replica store.ReplicaStore
}

// NewStatsHandler creates a StatsHandler over the given replica.
func NewStatsHandler(replica store.ReplicaStore) *StatsHandler {
	return &StatsHandler{replica: replica}
}

// Routes mounts the handler's endpoints on a fresh router.
func (h *StatsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/tasks", h.ListTasks)
	r.Get("/tasks/status", h.TaskStatusCounts)
	r.Get("/users/{id}/time", h.UserTimeEntries)
	return r
}

// ListTasks returns a page of replicated tasks.
func (h *StatsHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size < 1 {
		size = statsDefaultPageSize
	}

	tasks, err := h.replica.ListTasks(r.Context(), (page-1)*size, size)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, http.StatusInternalServerError, "Failed to read task statistics", err)
		return
	}

	resp := TaskListResponse{
		Tasks: make([]TaskResponse, 0, len(tasks)),
		Page:  page,
		Size:  size,
	}
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, NewTaskResponse(task))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// TaskStatusCounts reports how many replicated tasks sit in each status.
func (h *StatsHandler) TaskStatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.replica.CountTasksByStatus(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, http.StatusInternalServerError, "Failed to read task statistics", err)
		return
	}

	resp := StatusCountsResponse{Counts: make(map[string]int, len(counts))}
	for status, n := range counts {
		resp.Counts[string(status)] = n
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// UserTimeEntries returns a user's logged time within the from/to date
// range given as RFC 3339 query parameters. The range defaults to the
// last 30 days.
func (h *StatsHandler) UserTimeEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || userID < 1 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid from date")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid to date")
			return
		}
	}
	if to.Before(from) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Date range is inverted")
		return
	}

	entries, err := h.replica.ListTimeEntries(r.Context(), userID, from, to)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, http.StatusInternalServerError, "Failed to read time statistics", err)
		return
	}

	resp := make([]TimeEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, NewTimeEntryResponse(entry))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
