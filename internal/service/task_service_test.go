package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/events"
	"github.com/taskstream/taskstream/internal/service/userdir"
	"github.com/taskstream/taskstream/internal/store"
)

type serviceFixture struct {
	svc       *TaskService
	tasks     *fakeTaskStore
	entries   *fakeTimeEntryStore
	directory *fakeDirectory
	publisher *fakePublisher
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	tasks := newFakeTaskStore()
	entries := newFakeTimeEntryStore()
	directory := newFakeDirectory()
	publisher := &fakePublisher{}

	directory.add(1, "alice@x.com")
	directory.add(2, "bob@x.com")
	directory.add(3, "carol@x.com")
	directory.add(4, "admin@x.com", domain.RoleUser, domain.RoleAdmin)
	directory.add(5, "mgr@x.com", domain.RoleManager)

	return &serviceFixture{
		svc:       NewTaskService(passthroughTx, tasks, entries, directory, publisher),
		tasks:     tasks,
		entries:   entries,
		directory: directory,
		publisher: publisher,
	}
}

func (f *serviceFixture) createTask(t *testing.T, input TaskInput, author string) *domain.Task {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), input, author)
	require.NoError(t, err)
	return task
}

func TestCreateTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("defaults status to waiting and publishes after persist", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		task, err := f.svc.CreateTask(ctx, TaskInput{
			Title:         "T1",
			AssigneeEmail: "bob@x.com",
			Priority:      "HIGH",
		}, "alice@x.com")
		require.NoError(t, err)

		assert.Equal(t, domain.TaskStatusWaiting, task.Status)
		assert.Equal(t, domain.TaskPriorityHigh, task.Priority)
		assert.Equal(t, 1, task.AuthorID)
		require.NotNil(t, task.AssigneeID)
		assert.Equal(t, 2, *task.AssigneeID)

		stored, err := f.tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusWaiting, stored.Status)

		require.Len(t, f.publisher.published, 1)
		published := f.publisher.published[0]
		assert.Equal(t, events.TopicTaskCreated, published.topic)
		assert.Equal(t, events.KindTaskCreated, published.envelope.Kind)
		assert.Equal(t, events.PartitionKey(task.ID), published.key)

		var snapshot events.TaskSnapshot
		require.NoError(t, published.envelope.UnmarshalPayload(&snapshot))
		assert.Equal(t, task.ID, snapshot.ID)
		assert.Equal(t, "WAITING", snapshot.Status)
	})

	t.Run("unknown assignee fails with user not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.CreateTask(ctx, TaskInput{
			Title:         "T1",
			AssigneeEmail: "ghost@x.com",
			Priority:      "LOW",
		}, "alice@x.com")
		assert.ErrorIs(t, err, userdir.ErrUserNotFound)
		assert.Empty(t, f.publisher.published)
	})

	t.Run("invalid priority is rejected, not defaulted", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.CreateTask(ctx, TaskInput{Title: "T1", Priority: "URGENT"}, "alice@x.com")
		assert.ErrorIs(t, err, domain.ErrInvalidEnumValue)
	})

	t.Run("publish failure does not fail the create", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.publisher.failWith = errPublishBroken

		task, err := f.svc.CreateTask(ctx, TaskInput{Title: "T1", Priority: "LOW"}, "alice@x.com")
		require.NoError(t, err)

		_, err = f.tasks.GetByID(ctx, task.ID)
		assert.NoError(t, err)
	})
}

func TestListTasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.createTask(t, TaskInput{Title: fmt.Sprintf("T%d", i+1), Priority: "LOW"}, "alice@x.com")
	}

	t.Run("pages are one-based", func(t *testing.T) {
		first, err := f.svc.ListTasks(ctx, 1, 2)
		require.NoError(t, err)
		require.Len(t, first, 2)
		assert.Equal(t, 1, first[0].ID)
		assert.Equal(t, 2, first[1].ID)

		second, err := f.svc.ListTasks(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, second, 2)
		assert.Equal(t, 3, second[0].ID)
		assert.Equal(t, 4, second[1].ID)
	})

	t.Run("page zero falls back to the first page", func(t *testing.T) {
		zero, err := f.svc.ListTasks(ctx, 0, 2)
		require.NoError(t, err)
		first, err := f.svc.ListTasks(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, first, zero)
	})

	t.Run("last page is short", func(t *testing.T) {
		last, err := f.svc.ListTasks(ctx, 3, 2)
		require.NoError(t, err)
		require.Len(t, last, 1)
		assert.Equal(t, 5, last[0].ID)
	})
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing task fails with task not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.UpdateTask(ctx, 99, TaskInput{Title: "T", Priority: "LOW"})
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("re-resolves assignee and publishes updated", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		task := f.createTask(t, TaskInput{Title: "T1", Priority: "LOW"}, "alice@x.com")
		f.publisher.published = nil

		updated, err := f.svc.UpdateTask(ctx, task.ID, TaskInput{
			Title:         "T1 renamed",
			Status:        "IN_PROCESS",
			Priority:      "MEDIUM",
			AssigneeEmail: "carol@x.com",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProcess, updated.Status)
		require.NotNil(t, updated.AssigneeID)
		assert.Equal(t, 3, *updated.AssigneeID)
		// Author stays immutable across updates.
		assert.Equal(t, task.AuthorID, updated.AuthorID)

		require.Len(t, f.publisher.published, 1)
		assert.Equal(t, events.TopicTaskUpdated, f.publisher.published[0].topic)
	})
}

func TestAssignTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "T1", Priority: "LOW"}, "alice@x.com")
	f.publisher.published = nil

	assigned, err := f.svc.AssignTask(ctx, task.ID, "bob@x.com")
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, 2, *assigned.AssigneeID)

	// Assignment is an update of the task, so the replica hears about it
	// on the updated topic.
	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, events.TopicTaskUpdated, f.publisher.published[0].topic)

	_, err = f.svc.AssignTask(ctx, 99, "bob@x.com")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	_, err = f.svc.AssignTask(ctx, task.ID, "ghost@x.com")
	assert.ErrorIs(t, err, userdir.ErrUserNotFound)
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "T1", Priority: "LOW"}, "alice@x.com")
	f.publisher.published = nil

	require.NoError(t, f.svc.DeleteTask(ctx, task.ID))

	_, err := f.tasks.GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	// The deleted event carries the last known snapshot: the row is gone
	// and cannot be re-queried by the consumer.
	require.Len(t, f.publisher.published, 1)
	published := f.publisher.published[0]
	assert.Equal(t, events.TopicTaskDeleted, published.topic)

	var snapshot events.TaskSnapshot
	require.NoError(t, published.envelope.UnmarshalPayload(&snapshot))
	assert.Equal(t, task.ID, snapshot.ID)
	assert.Equal(t, "T1", snapshot.Title)

	assert.ErrorIs(t, f.svc.DeleteTask(ctx, task.ID), store.ErrTaskNotFound)
}

func TestSetDeadline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	deadline := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("author may set the deadline", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		task := f.createTask(t, TaskInput{Title: "T1", Priority: "LOW"}, "alice@x.com")
		f.publisher.published = nil

		updated, err := f.svc.SetDeadline(ctx, task.ID, deadline, "alice@x.com")
		require.NoError(t, err)
		require.NotNil(t, updated.Deadline)
		assert.True(t, updated.Deadline.Equal(deadline))

		require.Len(t, f.publisher.published, 1)
		assert.Equal(t, events.TopicTaskUpdated, f.publisher.published[0].topic)
	})

	t.Run("elevated roles may set the deadline", func(t *testing.T) {
		t.Parallel()

		for _, requester := range []string{"admin@x.com", "mgr@x.com"} {
			f := newFixture(t)
			task := f.createTask(t, TaskInput{Title: "T1", Priority: "LOW"}, "alice@x.com")

			_, err := f.svc.SetDeadline(ctx, task.ID, deadline, requester)
			assert.NoError(t, err, "requester %s", requester)
		}
	})

	t.Run("non-author without elevated role is denied and nothing is published", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		task := f.createTask(t, TaskInput{Title: "T1", Priority: "LOW"}, "alice@x.com")
		f.publisher.published = nil

		_, err := f.svc.SetDeadline(ctx, task.ID, deadline, "carol@x.com")
		assert.ErrorIs(t, err, ErrTaskAccessDenied)
		assert.Empty(t, f.publisher.published)

		stored, getErr := f.tasks.GetByID(ctx, task.ID)
		require.NoError(t, getErr)
		assert.Nil(t, stored.Deadline)
	})

	t.Run("missing task fails before the permission check", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.SetDeadline(ctx, 99, deadline, "alice@x.com")
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestRecordTimeEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("persists entry and publishes after commit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		task := f.createTask(t, TaskInput{Title: "T1", Priority: "LOW"}, "alice@x.com")
		f.publisher.published = nil

		entry, err := f.svc.RecordTimeEntry(ctx, task.ID, "bob@x.com", date, 6.5)
		require.NoError(t, err)
		assert.Equal(t, 2, entry.UserID)
		assert.NotZero(t, entry.ID)

		require.Len(t, f.publisher.published, 1)
		published := f.publisher.published[0]
		assert.Equal(t, events.TopicTimeEntry, published.topic)
		assert.Equal(t, events.KindTimeEntryRecorded, published.envelope.Kind)
		assert.Equal(t, events.PartitionKey(entry.ID), published.key)
	})

	t.Run("missing task fails with task not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.RecordTimeEntry(ctx, 99, "bob@x.com", date, 1)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("negative hours are rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		task := f.createTask(t, TaskInput{Title: "T1", Priority: "LOW"}, "alice@x.com")

		_, err := f.svc.RecordTimeEntry(ctx, task.ID, "bob@x.com", date, -1)
		assert.ErrorIs(t, err, domain.ErrNegativeHours)
	})
}

func TestGetTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	task := f.createTask(t, TaskInput{Title: "T1", Priority: "HIGH"}, "alice@x.com")
	_, err := f.svc.RecordTimeEntry(ctx, task.ID, "bob@x.com", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)

	got, err := f.svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.Task.ID)
	require.Len(t, got.TimeEntries, 1)
	assert.Equal(t, 3.0, got.TimeEntries[0].Hours)

	_, err = f.svc.GetTask(ctx, 99)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}
