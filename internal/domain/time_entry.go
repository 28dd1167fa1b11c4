package domain

import "time"

// TimeEntry records hours a user spent on a task on a calendar date.
// Entries exist only in the context of a task and are removed when the
// task is deleted.
type TimeEntry struct {
	ID     int       `json:"id"`
	TaskID int       `json:"task_id"`
	UserID int       `json:"user_id"`
	Date   time.Time `json:"date"`
	Hours  float64   `json:"hours"`
}

// NewTimeEntry assembles a time entry for an existing task.
func NewTimeEntry(taskID, userID int, date time.Time, hours float64) (*TimeEntry, error) {
	entry := &TimeEntry{
		TaskID: taskID,
		UserID: userID,
		Date:   date,
		Hours:  hours,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Validate checks the time entry's invariants.
func (e *TimeEntry) Validate() error {
	if e.Hours < 0 {
		return ErrNegativeHours
	}
	return nil
}
