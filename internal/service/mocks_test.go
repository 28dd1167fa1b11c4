package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/events"
	"github.com/taskstream/taskstream/internal/service/userdir"
	"github.com/taskstream/taskstream/internal/store"
)

// passthroughTx runs the function without a real transaction.
func passthroughTx(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

type fakeTaskStore struct {
	tasks  map[int]domain.Task
	nextID int

	createErr error
	updateErr error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[int]domain.Task), nextID: 1}
}

func (s *fakeTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return s }

func (s *fakeTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if s.createErr != nil {
		return s.createErr
	}
	task.ID = s.nextID
	s.nextID++
	s.tasks[task.ID] = *task
	return nil
}

func (s *fakeTaskStore) GetByID(ctx context.Context, id int) (*domain.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := task
	return &copied, nil
}

func (s *fakeTaskStore) List(ctx context.Context, offset, limit int) ([]*domain.Task, error) {
	ids := make([]int, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var result []*domain.Task
	for i, id := range ids {
		if i < offset || len(result) >= limit {
			continue
		}
		task := s.tasks[id]
		result = append(result, &task)
	}
	return result, nil
}

func (s *fakeTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *fakeTaskStore) Delete(ctx context.Context, id int) error {
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

type fakeTimeEntryStore struct {
	entries map[int]domain.TimeEntry
	nextID  int
}

func newFakeTimeEntryStore() *fakeTimeEntryStore {
	return &fakeTimeEntryStore{entries: make(map[int]domain.TimeEntry), nextID: 1}
}

func (s *fakeTimeEntryStore) WithTx(tx *sql.Tx) store.TimeEntryStore { return s }

func (s *fakeTimeEntryStore) Create(ctx context.Context, entry *domain.TimeEntry) error {
	entry.ID = s.nextID
	s.nextID++
	s.entries[entry.ID] = *entry
	return nil
}

func (s *fakeTimeEntryStore) ListByTask(ctx context.Context, taskID int) ([]*domain.TimeEntry, error) {
	var result []*domain.TimeEntry
	for id := range s.entries {
		entry := s.entries[id]
		if entry.TaskID == taskID {
			result = append(result, &entry)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeDirectory struct {
	byEmail map[string]*userdir.Identity
	roles   map[string][]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byEmail: make(map[string]*userdir.Identity),
		roles:   make(map[string][]string),
	}
}

func (d *fakeDirectory) add(id int, email string, roles ...string) {
	d.byEmail[email] = &userdir.Identity{ID: id, Email: email}
	if len(roles) == 0 {
		roles = []string{domain.RoleUser}
	}
	d.roles[email] = roles
}

func (d *fakeDirectory) GetByEmail(ctx context.Context, email string) (*userdir.Identity, error) {
	identity, ok := d.byEmail[email]
	if !ok {
		return nil, userdir.ErrUserNotFound
	}
	return identity, nil
}

func (d *fakeDirectory) GetByID(ctx context.Context, id int) (*userdir.Identity, error) {
	for _, identity := range d.byEmail {
		if identity.ID == id {
			return identity, nil
		}
	}
	return nil, userdir.ErrUserNotFound
}

func (d *fakeDirectory) Roles(ctx context.Context, email string) ([]string, error) {
	roles, ok := d.roles[email]
	if !ok {
		return nil, userdir.ErrUserNotFound
	}
	return roles, nil
}

type publishedEvent struct {
	topic    string
	key      []byte
	envelope *events.Envelope
}

type fakePublisher struct {
	published []publishedEvent
	failWith  error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key []byte, envelope *events.Envelope) error {
	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, publishedEvent{topic: topic, key: key, envelope: envelope})
	return nil
}

var errPublishBroken = errors.New("broker unreachable")
