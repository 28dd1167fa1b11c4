package api

import (
	"context"
	"fmt"
	"time"

	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/service"
	"github.com/taskstream/taskstream/internal/store"
)

// fakeUserStore is an in-memory store.UserStore.
type fakeUserStore struct {
	byEmail map[string]*domain.User
	nextID  int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*domain.User), nextID: 1}
}

func (s *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	if _, exists := s.byEmail[user.Email]; exists {
		return store.ErrEmailExists
	}
	user.ID = s.nextID
	s.nextID++
	user.CreatedAt = time.Now().UTC()
	s.byEmail[user.Email] = user
	return nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id int) (*domain.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

var _ store.UserStore = (*fakeUserStore)(nil)

// stubTaskService records calls and returns canned results per method.
type stubTaskService struct {
	task    *domain.Task
	detail  *service.TaskWithEntries
	tasks   []*domain.Task
	entry   *domain.TimeEntry
	err     error
	calls   []string
	gotID   int
	gotUser string
}

func (s *stubTaskService) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *stubTaskService) CreateTask(
	ctx context.Context,
	input service.TaskInput,
	authorEmail string,
) (*domain.Task, error) {
	s.record("create")
	s.gotUser = authorEmail
	return s.task, s.err
}

func (s *stubTaskService) GetTask(ctx context.Context, id int) (*service.TaskWithEntries, error) {
	s.record("get")
	s.gotID = id
	return s.detail, s.err
}

func (s *stubTaskService) ListTasks(ctx context.Context, page, size int) ([]*domain.Task, error) {
	s.record("list")
	return s.tasks, s.err
}

func (s *stubTaskService) UpdateTask(
	ctx context.Context,
	id int,
	input service.TaskInput,
) (*domain.Task, error) {
	s.record("update")
	s.gotID = id
	return s.task, s.err
}

func (s *stubTaskService) AssignTask(
	ctx context.Context,
	id int,
	assigneeEmail string,
) (*domain.Task, error) {
	s.record("assign")
	s.gotID = id
	s.gotUser = assigneeEmail
	return s.task, s.err
}

func (s *stubTaskService) DeleteTask(ctx context.Context, id int) error {
	s.record("delete")
	s.gotID = id
	return s.err
}

func (s *stubTaskService) SetDeadline(
	ctx context.Context,
	id int,
	deadline time.Time,
	requesterEmail string,
) (*domain.Task, error) {
	s.record("deadline")
	s.gotID = id
	s.gotUser = requesterEmail
	return s.task, s.err
}

func (s *stubTaskService) RecordTimeEntry(
	ctx context.Context,
	taskID int,
	userEmail string,
	date time.Time,
	hours float64,
) (*domain.TimeEntry, error) {
	s.record("time")
	s.gotID = taskID
	s.gotUser = userEmail
	return s.entry, s.err
}

var _ TaskService = (*stubTaskService)(nil)

// fakeReplica is an in-memory store.ReplicaStore for the read side.
type fakeReplica struct {
	tasks   []*domain.Task
	entries []*domain.TimeEntry
	err     error
}

func (r *fakeReplica) UpsertTask(ctx context.Context, task *domain.Task) (bool, error) {
	return false, fmt.Errorf("not used in handler tests")
}

func (r *fakeReplica) DeleteTask(ctx context.Context, id int) error {
	return fmt.Errorf("not used in handler tests")
}

func (r *fakeReplica) UpsertTimeEntry(ctx context.Context, entry *domain.TimeEntry) error {
	return fmt.Errorf("not used in handler tests")
}

func (r *fakeReplica) ListTasks(ctx context.Context, offset, limit int) ([]*domain.Task, error) {
	if r.err != nil {
		return nil, r.err
	}
	if offset >= len(r.tasks) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.tasks) {
		end = len(r.tasks)
	}
	return r.tasks[offset:end], nil
}

func (r *fakeReplica) CountTasksByStatus(
	ctx context.Context,
) (map[domain.TaskStatus]int, error) {
	if r.err != nil {
		return nil, r.err
	}
	counts := make(map[domain.TaskStatus]int)
	for _, task := range r.tasks {
		counts[task.Status]++
	}
	return counts, nil
}

func (r *fakeReplica) ListTimeEntries(
	ctx context.Context,
	userID int,
	from, to time.Time,
) ([]*domain.TimeEntry, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*domain.TimeEntry
	for _, entry := range r.entries {
		if entry.UserID != userID {
			continue
		}
		if entry.Date.Before(from) || entry.Date.After(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

var _ store.ReplicaStore = (*fakeReplica)(nil)
