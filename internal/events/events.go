// Package events defines the domain-event envelope published to the bus
// and the snapshot payloads it carries.
//
// Events are full snapshots, never deltas: the payload always carries
// enough state to replace the statistics replica's corresponding row.
package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/taskstream/taskstream/internal/domain"
)

// One topic per event kind.
const (
	TopicTaskCreated = "task_created"
	TopicTaskUpdated = "task_updated"
	TopicTaskDeleted = "task_deleted"
	TopicTimeEntry   = "time_entry"
)

// Event kinds carried in the envelope discriminator.
const (
	KindTaskCreated       = "TaskCreated"
	KindTaskUpdated       = "TaskUpdated"
	KindTaskDeleted       = "TaskDeleted"
	KindTimeEntryRecorded = "TimeEntryRecorded"
)

// Envelope is the bus message wrapping every domain event. Kind
// discriminates the payload type; Payload is the entity snapshot at
// publish time.
type Envelope struct {
	ID          uuid.UUID       `json:"id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

// TaskSnapshot is the flattened task state carried by task events.
// Identity references are resolved to stable integer IDs at publish
// time, never to mutable display fields.
type TaskSnapshot struct {
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

// TimeEntrySnapshot is the flattened time-entry state carried by
// TimeEntryRecorded events.
type TimeEntrySnapshot struct {
	ID     int       `json:"id"`
	TaskID int       `json:"task_id"`
	UserID int       `json:"user_id"`
	Date   time.Time `json:"date"`
	Hours  float64   `json:"hours"`
}

// SnapshotTask captures a task's state for publication.
func SnapshotTask(task *domain.Task) TaskSnapshot {
	return TaskSnapshot{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		AuthorID:    task.AuthorID,
		AssigneeID:  task.AssigneeID,
		Deadline:    task.Deadline,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// Task converts the snapshot back into the replica's task representation.
func (s TaskSnapshot) Task() (*domain.Task, error) {
	status, err := domain.ParseTaskStatus(s.Status)
	if err != nil {
		return nil, err
	}
	priority, err := domain.ParseTaskPriority(s.Priority)
	if err != nil {
		return nil, err
	}
	return &domain.Task{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		AuthorID:    s.AuthorID,
		AssigneeID:  s.AssigneeID,
		Deadline:    s.Deadline,
		Status:      status,
		Priority:    priority,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}, nil
}

// SnapshotTimeEntry captures a time entry's state for publication.
func SnapshotTimeEntry(entry *domain.TimeEntry) TimeEntrySnapshot {
	return TimeEntrySnapshot{
		ID:     entry.ID,
		TaskID: entry.TaskID,
		UserID: entry.UserID,
		Date:   entry.Date,
		Hours:  entry.Hours,
	}
}

// TimeEntry converts the snapshot back into the replica's representation.
func (s TimeEntrySnapshot) TimeEntry() *domain.TimeEntry {
	return &domain.TimeEntry{
		ID:     s.ID,
		TaskID: s.TaskID,
		UserID: s.UserID,
		Date:   s.Date,
		Hours:  s.Hours,
	}
}

// NewEnvelope wraps a snapshot payload in a bus envelope.
func NewEnvelope(kind string, payload any) (*Envelope, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return &Envelope{
		ID:          uuid.New(),
		Kind:        kind,
		Payload:     payloadBytes,
		PublishedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the envelope payload into the provided structure.
func (e *Envelope) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// PartitionKey derives the bus partition key for an entity ID. Publishing
// consistently by ID keeps delivery ordered within each key.
func PartitionKey(id int) []byte {
	return []byte(strconv.Itoa(id))
}
