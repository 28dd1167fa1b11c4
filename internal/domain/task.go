package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task. The set is closed; any
// other string value fails parsing with ErrInvalidEnumValue.
type TaskStatus string

const (
	TaskStatusWaiting   TaskStatus = "WAITING"
	TaskStatusInProcess TaskStatus = "IN_PROCESS"
	TaskStatusDone      TaskStatus = "DONE"
)

// TaskPriority is the urgency classification of a task.
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityLow    TaskPriority = "LOW"
)

var taskStatuses = map[TaskStatus]struct{}{
	TaskStatusWaiting:   {},
	TaskStatusInProcess: {},
	TaskStatusDone:      {},
}

var taskPriorities = map[TaskPriority]struct{}{
	TaskPriorityHigh:   {},
	TaskPriorityMedium: {},
	TaskPriorityLow:    {},
}

// ParseTaskStatus converts a string into a TaskStatus, accepting any
// casing. Returns ErrInvalidEnumValue for values outside the set.
func ParseTaskStatus(value string) (TaskStatus, error) {
	s := TaskStatus(strings.ToUpper(value))
	if _, ok := taskStatuses[s]; !ok {
		return "", fmt.Errorf(
			"%w: task status %q must be one of WAITING, IN_PROCESS, DONE",
			ErrInvalidEnumValue, value)
	}
	return s, nil
}

// ParseTaskPriority converts a string into a TaskPriority, accepting any
// casing. Returns ErrInvalidEnumValue for values outside the set.
func ParseTaskPriority(value string) (TaskPriority, error) {
	p := TaskPriority(strings.ToUpper(value))
	if _, ok := taskPriorities[p]; !ok {
		return "", fmt.Errorf(
			"%w: task priority %q must be one of HIGH, MEDIUM, LOW",
			ErrInvalidEnumValue, value)
	}
	return p, nil
}

// Task represents a unit of work owned by the task authority.
//
// The ID is assigned by the record store on creation. AuthorID is set at
// creation and immutable afterwards. AssigneeID and Deadline are optional.
type Task struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	AuthorID    int          `json:"author_id"`
	AssigneeID  *int         `json:"assignee_id,omitempty"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewTask assembles a task for creation. Status defaults to WAITING when
// unspecified; an explicit but unknown status or priority is an error.
func NewTask(title, description string, authorID int, status, priority string) (*Task, error) {
	task := &Task{
		Title:       title,
		Description: description,
		AuthorID:    authorID,
		Status:      TaskStatusWaiting,
	}

	if status != "" {
		parsed, err := ParseTaskStatus(status)
		if err != nil {
			return nil, err
		}
		task.Status = parsed
	}

	parsed, err := ParseTaskPriority(priority)
	if err != nil {
		return nil, err
	}
	task.Priority = parsed

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks the task's invariants.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if _, ok := taskStatuses[t.Status]; !ok {
		return fmt.Errorf("%w: task status %q", ErrInvalidEnumValue, t.Status)
	}
	if _, ok := taskPriorities[t.Priority]; !ok {
		return fmt.Errorf("%w: task priority %q", ErrInvalidEnumValue, t.Priority)
	}
	return nil
}
