package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskstream/taskstream/internal/api/shared"
	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/service"
)

// TaskService is the slice of the task authority's service surface the
// HTTP handler depends on.
type TaskService interface {
	CreateTask(ctx context.Context, input service.TaskInput, authorEmail string) (*domain.Task, error)
	GetTask(ctx context.Context, id int) (*service.TaskWithEntries, error)
	ListTasks(ctx context.Context, page, size int) ([]*domain.Task, error)
	UpdateTask(ctx context.Context, id int, input service.TaskInput) (*domain.Task, error)
	AssignTask(ctx context.Context, id int, assigneeEmail string) (*domain.Task, error)
	DeleteTask(ctx context.Context, id int) error
	SetDeadline(ctx context.Context, id int, deadline time.Time, requesterEmail string) (*domain.Task, error)
	RecordTimeEntry(ctx context.Context, taskID int, userEmail string, date time.Time, hours float64) (*domain.TimeEntry, error)
}

// TaskHandler serves the task authority's HTTP surface. It sits behind
// the gateway, so the caller's identity comes from the request context
// populated by the identity middleware.
type TaskHandler struct {
	tasks TaskService
}

// NewTaskHandler creates a TaskHandler backed by the given service.
func NewTaskHandler(tasks TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Routes mounts the handler's endpoints on a fresh router.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListTasks)
	r.Post("/", h.CreateTask)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetTask)
		r.Put("/", h.UpdateTask)
		r.Delete("/", h.DeleteTask)
		r.Patch("/assignee", h.AssignTask)
		r.Patch("/deadline", h.SetDeadline)
		r.Post("/time", h.RecordTimeEntry)
	})
	return r
}

func taskID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

// CreateTask creates a task authored by the caller.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	authorEmail, ok := shared.UserEmail(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req TaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task data")
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), taskInput(req), authorEmail)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewTaskResponse(task))
}

// GetTask returns a task together with its time entries.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	detail, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	resp := TaskDetailResponse{
		TaskResponse: NewTaskResponse(detail.Task),
		TimeEntries:  make([]TimeEntryResponse, 0, len(detail.TimeEntries)),
	}
	for _, entry := range detail.TimeEntries {
		resp.TimeEntries = append(resp.TimeEntries, NewTimeEntryResponse(entry))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ListTasks returns a page of tasks. Page numbers start at 1.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	tasks, err := h.tasks.ListTasks(r.Context(), page, size)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := TaskListResponse{
		Tasks: make([]TaskResponse, 0, len(tasks)),
		Page:  page,
		Size:  size,
	}
	if resp.Page < 1 {
		resp.Page = 1
	}
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, NewTaskResponse(task))
	}
	if resp.Size < 1 {
		resp.Size = len(resp.Tasks)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// UpdateTask replaces a task's mutable fields. The author never changes.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req TaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task data")
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), id, taskInput(req))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskResponse(task))
}

// AssignTask reassigns a task to the user named in the request.
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req AssignTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Assignee email is required")
		return
	}

	task, err := h.tasks.AssignTask(r.Context(), id, req.AssigneeEmail)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskResponse(task))
}

// SetDeadline sets a task's deadline. Only the task's author, or a caller
// holding an elevated role, may do this.
func (h *TaskHandler) SetDeadline(w http.ResponseWriter, r *http.Request) {
	requesterEmail, ok := shared.UserEmail(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := taskID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req SetDeadlineRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Deadline is required")
		return
	}

	task, err := h.tasks.SetDeadline(r.Context(), id, req.Deadline, requesterEmail)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskResponse(task))
}

// DeleteTask removes a task and its time entries.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// RecordTimeEntry logs hours worked against a task on behalf of the
// caller.
func (h *TaskHandler) RecordTimeEntry(w http.ResponseWriter, r *http.Request) {
	userEmail, ok := shared.UserEmail(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := taskID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req TimeEntryRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid time entry data")
		return
	}

	entry, err := h.tasks.RecordTimeEntry(r.Context(), id, userEmail, req.Date, req.Hours)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewTimeEntryResponse(entry))
}

var _ TaskService = (*service.TaskService)(nil)

func taskInput(req TaskRequest) service.TaskInput {
	return service.TaskInput{
		Title:         req.Title,
		Description:   req.Description,
		AssigneeEmail: req.AssigneeEmail,
		Status:        req.Status,
		Priority:      req.Priority,
		Deadline:      req.Deadline,
	}
}
