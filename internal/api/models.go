// Package api contains the HTTP handlers for the backend services and
// the request/response models they exchange.
package api

import (
	"time"

	"github.com/taskstream/taskstream/internal/domain"
)

// RegisterRequest is the payload for user registration.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// TokenRequest is the payload for obtaining an access token.
type TokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ValidateTokenResponse identifies the subject of a valid token.
type ValidateTokenResponse struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

// UserResponse is the public view of a directory user.
type UserResponse struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TaskRequest is the payload for creating or updating a task. The
// assignee is addressed by email and resolved against the identity
// directory server-side.
type TaskRequest struct {
	Title         string     `json:"title" validate:"required"`
	Description   string     `json:"description"`
	AssigneeEmail string     `json:"assignee_email" validate:"omitempty,email"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority" validate:"required"`
	Deadline      *time.Time `json:"deadline"`
}

// AssignTaskRequest reassigns a task to another user.
type AssignTaskRequest struct {
	AssigneeEmail string `json:"assignee_email" validate:"required,email"`
}

// SetDeadlineRequest sets or moves a task's deadline.
type SetDeadlineRequest struct {
	Deadline time.Time `json:"deadline" validate:"required"`
}

// TimeEntryRequest logs hours worked against a task. Zero hours is a
// valid entry; only negative values are rejected.
type TimeEntryRequest struct {
	Date  time.Time `json:"date" validate:"required"`
	Hours float64   `json:"hours" validate:"gte=0"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AuthorID    int        `json:"author_id"`
	AssigneeID  *int       `json:"assignee_id,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TimeEntryResponse is the public view of a logged time entry.
type TimeEntryResponse struct {
	ID     int       `json:"id"`
	TaskID int       `json:"task_id"`
	UserID int       `json:"user_id"`
	Date   time.Time `json:"date"`
	Hours  float64   `json:"hours"`
}

// TaskDetailResponse is a task together with its logged time entries.
type TaskDetailResponse struct {
	TaskResponse
	TimeEntries []TimeEntryResponse `json:"time_entries"`
}

// TaskListResponse is a page of tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// StatusCountsResponse reports how many tasks sit in each status.
type StatusCountsResponse struct {
	Counts map[string]int `json:"counts"`
}

// NewTaskResponse converts a domain task into its API representation.
func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		AuthorID:    t.AuthorID,
		AssigneeID:  t.AssigneeID,
		Deadline:    t.Deadline,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTimeEntryResponse converts a domain time entry into its API
// representation.
func NewTimeEntryResponse(e *domain.TimeEntry) TimeEntryResponse {
	return TimeEntryResponse{
		ID:     e.ID,
		TaskID: e.TaskID,
		UserID: e.UserID,
		Date:   e.Date,
		Hours:  e.Hours,
	}
}
