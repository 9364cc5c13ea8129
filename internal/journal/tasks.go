package journal

import (
	"context"

	"github.com/starford/folio/internal/models"
)

// CompleteTask marks a task completed. Completing an already completed task
// appends nothing. A parent with open sub-tasks is rejected with
// apperr.ErrCascade; complete it through CompleteParentTask instead.
func (s *Service) CompleteTask(ctx context.Context, id string) error {
	const op = "complete_task"

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.editableTask(id)
	if err != nil {
		return s.rejected(op, err)
	}
	if st := s.views.Tasks.CompletionStatus(e.ID); st.Completed < st.Total {
		return s.rejected(op, cascade("task %q has %d open sub-tasks", e.ID, st.Total-st.Completed))
	}
	var b batch
	if t, _ := e.Task(); t.Status != models.StatusCompleted {
		b.add(e.ID, models.KindTaskCompleted, nil)
	}
	return s.commit(ctx, op, &b)
}

// ReopenTask marks a task open again. Reopening a sub-task leaves its parent
// as it is.
func (s *Service) ReopenTask(ctx context.Context, id string) error {
	const op = "reopen_task"

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.editableTask(id)
	if err != nil {
		return s.rejected(op, err)
	}
	var b batch
	if t, _ := e.Task(); t.Status != models.StatusOpen {
		b.add(e.ID, models.KindTaskReopened, nil)
	}
	return s.commit(ctx, op, &b)
}

// CompleteParentTask completes a task and every open direct sub-task, in
// ascending order key, as one batch.
func (s *Service) CompleteParentTask(ctx context.Context, id string) error {
	const op = "complete_parent_task"

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.editableTask(id)
	if err != nil {
		return s.rejected(op, err)
	}
	if e.IsSubTask() {
		return s.rejected(op, invalid("task %q is a sub-task", e.ID))
	}

	var b batch
	if t, _ := e.Task(); t.Status != models.StatusCompleted {
		b.add(e.ID, models.KindTaskCompleted, nil)
	}
	for _, kid := range s.views.Tasks.SubTasks(e.ID) {
		if t, _ := kid.Task(); t.Status == models.StatusOpen {
			b.add(kid.ID, models.KindTaskCompleted, nil)
		}
	}
	return s.commit(ctx, op, &b)
}

// DeleteParentTask deletes a task together with all of its direct sub-tasks
// and the ghosts the task left behind, as one batch.
func (s *Service) DeleteParentTask(ctx context.Context, id string) error {
	const op = "delete_parent_task"

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.editableTask(id)
	if err != nil {
		return s.rejected(op, err)
	}
	if e.IsSubTask() {
		return s.rejected(op, invalid("task %q is a sub-task", e.ID))
	}

	var b batch
	b.add(e.ID, models.KindEntryDeleted, nil)
	s.deleteAllGhosts(&b, e.ID)
	for _, kid := range s.views.Tasks.SubTasks(e.ID) {
		b.add(kid.ID, models.KindEntryDeleted, nil)
	}
	return s.commit(ctx, op, &b)
}
