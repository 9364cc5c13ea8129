package journal

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/orderkey"
)

// CreateTaskInput creates a top-level task. An empty CollectionID files it
// as uncategorized.
type CreateTaskInput struct {
	CollectionID string `json:"collection_id"`
	Title        string `json:"title"`
}

// Validate trims and checks the input.
func (in *CreateTaskInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	return validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, MaxTitleLength)),
	)
}

// CreateSubTaskInput creates a task under ParentTaskID.
type CreateSubTaskInput struct {
	ParentTaskID string `json:"parent_task_id"`
	Title        string `json:"title"`
}

func (in *CreateSubTaskInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	return validation.ValidateStruct(in,
		validation.Field(&in.ParentTaskID, validation.Required),
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, MaxTitleLength)),
	)
}

type CreateNoteInput struct {
	CollectionID string `json:"collection_id"`
	Content      string `json:"content"`
}

func (in *CreateNoteInput) Validate() error {
	in.Content = strings.TrimSpace(in.Content)
	return validation.ValidateStruct(in,
		validation.Field(&in.Content, validation.Required, validation.RuneLength(1, MaxContentLength)),
	)
}

type CreateEventInput struct {
	CollectionID string     `json:"collection_id"`
	Content      string     `json:"content"`
	EventDate    *time.Time `json:"event_date"`
}

func (in *CreateEventInput) Validate() error {
	in.Content = strings.TrimSpace(in.Content)
	return validation.ValidateStruct(in,
		validation.Field(&in.Content, validation.Required, validation.RuneLength(1, MaxContentLength)),
	)
}

// CreateTask appends a task to the end of its collection and returns its id.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (string, error) {
	const op = "create_task"
	if err := in.Validate(); err != nil {
		return "", s.rejected(op, invalidInput(err))
	}
	return s.createTopLevel(ctx, op, models.EntryCreated{
		Type:         models.TypeTask,
		CollectionID: in.CollectionID,
		Title:        in.Title,
	})
}

// CreateNote appends a note to the end of its collection and returns its id.
func (s *Service) CreateNote(ctx context.Context, in CreateNoteInput) (string, error) {
	const op = "create_note"
	if err := in.Validate(); err != nil {
		return "", s.rejected(op, invalidInput(err))
	}
	return s.createTopLevel(ctx, op, models.EntryCreated{
		Type:         models.TypeNote,
		CollectionID: in.CollectionID,
		Content:      in.Content,
	})
}

// CreateEvent appends an event to the end of its collection and returns its id.
func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput) (string, error) {
	const op = "create_event"
	if err := in.Validate(); err != nil {
		return "", s.rejected(op, invalidInput(err))
	}
	return s.createTopLevel(ctx, op, models.EntryCreated{
		Type:         models.TypeEvent,
		CollectionID: in.CollectionID,
		Content:      in.Content,
		EventDate:    in.EventDate,
	})
}

func (s *Service) createTopLevel(ctx context.Context, op string, p models.EntryCreated) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTarget(p.CollectionID); err != nil {
		return "", s.rejected(op, err)
	}
	key, err := orderkey.After(s.views.Entries.LastKey(p.CollectionID))
	if err != nil {
		return "", s.rejected(op, invalid("%v", err))
	}
	p.OrderKey = key

	id := s.newID()
	var b batch
	b.add(id, models.KindEntryCreated, p)
	if err := s.commit(ctx, op, &b); err != nil {
		return "", err
	}
	return id, nil
}

// CreateSubTask appends a task to the end of its parent's sub-tasks. The
// parent must be a top-level task.
func (s *Service) CreateSubTask(ctx context.Context, in CreateSubTaskInput) (string, error) {
	const op = "create_sub_task"
	if err := in.Validate(); err != nil {
		return "", s.rejected(op, invalidInput(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.editableTask(in.ParentTaskID)
	if err != nil {
		return "", s.rejected(op, err)
	}
	if parent.IsSubTask() {
		return "", s.rejected(op, invalid("task %q is already a sub-task", parent.ID))
	}
	last := ""
	if kids := s.views.Tasks.SubTasks(parent.ID); len(kids) > 0 {
		last = kids[len(kids)-1].OrderKey
	}
	key, err := orderkey.After(last)
	if err != nil {
		return "", s.rejected(op, invalid("%v", err))
	}

	id := s.newID()
	var b batch
	b.add(id, models.KindEntryCreated, models.EntryCreated{
		Type:         models.TypeTask,
		CollectionID: parent.CollectionID,
		OrderKey:     key,
		Title:        in.Title,
		ParentTaskID: parent.ID,
	})
	if err := s.commit(ctx, op, &b); err != nil {
		return "", err
	}
	return id, nil
}

// EditTextInput replaces the text of an entry.
type EditTextInput struct {
	EntryID string `json:"entry_id"`
	Text    string `json:"text"`
}

func (in *EditTextInput) validate(limit int) error {
	in.Text = strings.TrimSpace(in.Text)
	return validation.ValidateStruct(in,
		validation.Field(&in.EntryID, validation.Required),
		validation.Field(&in.Text, validation.Required, validation.RuneLength(1, limit)),
	)
}

// UpdateTaskTitle renames a task. An unchanged title appends nothing.
func (s *Service) UpdateTaskTitle(ctx context.Context, in EditTextInput) error {
	const op = "update_task_title"
	if err := in.validate(MaxTitleLength); err != nil {
		return s.rejected(op, invalidInput(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.editableTask(in.EntryID)
	if err != nil {
		return s.rejected(op, err)
	}
	var b batch
	if e.Text() != in.Text {
		b.add(e.ID, models.KindTaskTitleUpdated, models.TaskTitleUpdated{Title: in.Text})
	}
	return s.commit(ctx, op, &b)
}

// UpdateNoteContent replaces the text of a note.
func (s *Service) UpdateNoteContent(ctx context.Context, in EditTextInput) error {
	return s.updateContent(ctx, "update_note_content", models.TypeNote, models.KindNoteContentUpdated, in)
}

// UpdateEventContent replaces the text of an event.
func (s *Service) UpdateEventContent(ctx context.Context, in EditTextInput) error {
	return s.updateContent(ctx, "update_event_content", models.TypeEvent, models.KindEventContentUpdated, in)
}

func (s *Service) updateContent(ctx context.Context, op string, typ models.EntryType, kind string, in EditTextInput) error {
	if err := in.validate(MaxContentLength); err != nil {
		return s.rejected(op, invalidInput(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.editable(in.EntryID, typ)
	if err != nil {
		return s.rejected(op, err)
	}
	var b batch
	if e.Text() != in.Text {
		b.add(e.ID, kind, models.ContentUpdated{Content: in.Text})
	}
	return s.commit(ctx, op, &b)
}

// EventDateInput sets or clears the date of an event.
type EventDateInput struct {
	EntryID   string     `json:"entry_id"`
	EventDate *time.Time `json:"event_date"`
}

// UpdateEventDate changes the date of an event. A nil date clears it.
func (s *Service) UpdateEventDate(ctx context.Context, in EventDateInput) error {
	const op = "update_event_date"

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.editable(in.EntryID, models.TypeEvent)
	if err != nil {
		return s.rejected(op, err)
	}
	cur := e.Body.(*models.Event).EventDate
	var b batch
	if !sameDate(cur, in.EventDate) {
		b.add(e.ID, models.KindEventDateUpdated, models.EventDateUpdated{EventDate: in.EventDate})
	}
	return s.commit(ctx, op, &b)
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// DeleteEntry removes an entry together with the ghosts pointing at it, or a
// single ghost. A task that still has sub-tasks is rejected with
// apperr.ErrCascade and must go through DeleteParentTask.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	const op = "delete_entry"

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.views.Entries.Get(id)
	if !ok {
		return s.rejected(op, notFound("entry", id))
	}
	if s.views.Tasks.HasSubTasks(e.ID) {
		return s.rejected(op, cascade("task %q has sub-tasks", e.ID))
	}
	var b batch
	b.add(e.ID, models.KindEntryDeleted, nil)
	if !e.IsGhost() {
		s.deleteAllGhosts(&b, e.ID)
	}
	return s.commit(ctx, op, &b)
}

// checkTarget accepts Uncategorized or a live collection.
func (s *Service) checkTarget(collectionID string) error {
	if collectionID == "" {
		return nil
	}
	c, ok := s.views.Collections.Get(collectionID)
	if !ok {
		return notFound("collection", collectionID)
	}
	if c.Deleted() {
		return invalid("collection %q is deleted", collectionID)
	}
	return nil
}

// editable returns a live, non-ghost entry of type typ.
func (s *Service) editable(id string, typ models.EntryType) (models.Entry, error) {
	e, ok := s.views.Entries.Get(id)
	if !ok {
		return models.Entry{}, notFound("entry", id)
	}
	if e.IsGhost() {
		return models.Entry{}, invalid("entry %q is a ghost", id)
	}
	if e.Type() != typ {
		return models.Entry{}, invalid("entry %q is a %s, not a %s", id, e.Type(), typ)
	}
	return e, nil
}

func (s *Service) editableTask(id string) (models.Entry, error) {
	return s.editable(id, models.TypeTask)
}
