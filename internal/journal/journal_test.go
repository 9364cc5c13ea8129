package journal_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/eventlog"
	"github.com/starford/folio/internal/journal"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/projection"
	"github.com/starford/folio/internal/testutil"
)

var ctx = context.Background()

func mustID(t *testing.T, id string, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return id
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}

func collection(t *testing.T, j *testutil.Journal, name string) string {
	t.Helper()
	id, err := j.CreateCollection(ctx, journal.CreateCollectionInput{Name: name})
	return mustID(t, id, err)
}

func task(t *testing.T, j *testutil.Journal, collectionID, title string) string {
	t.Helper()
	id, err := j.CreateTask(ctx, journal.CreateTaskInput{CollectionID: collectionID, Title: title})
	return mustID(t, id, err)
}

func subTask(t *testing.T, j *testutil.Journal, parentID, title string) string {
	t.Helper()
	id, err := j.CreateSubTask(ctx, journal.CreateSubTaskInput{ParentTaskID: parentID, Title: title})
	return mustID(t, id, err)
}

func entryIDs(entries []models.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func status(t *testing.T, j *testutil.Journal, id string) models.TaskStatus {
	t.Helper()
	e, ok := j.Views.Entries.Get(id)
	if !ok {
		t.Fatalf("entry %s missing", id)
	}
	task, ok := e.Task()
	if !ok {
		t.Fatalf("entry %s is a %s", id, e.Type())
	}
	return task.Status
}

func TestCreate_TrimsAndOrdersAtEnd(t *testing.T) {
	j := testutil.NewJournal(t)
	inbox := collection(t, j, "Inbox")

	a := task(t, j, inbox, "  first  ")
	b, err := j.CreateNote(ctx, journal.CreateNoteInput{CollectionID: inbox, Content: "second"})
	mustOK(t, err)
	date := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c, err := j.CreateEvent(ctx, journal.CreateEventInput{CollectionID: inbox, Content: "third", EventDate: &date})
	mustOK(t, err)

	list := j.Views.Entries.ByCollection(inbox)
	if got := entryIDs(list); strings.Join(got, ",") != strings.Join([]string{a, b, c}, ",") {
		t.Fatalf("order = %v", got)
	}
	if list[0].Text() != "first" {
		t.Errorf("title = %q, want trimmed", list[0].Text())
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].OrderKey >= list[i].OrderKey {
			t.Errorf("keys not increasing: %q, %q", list[i-1].OrderKey, list[i].OrderKey)
		}
	}
	if ev := list[2].Body.(*models.Event); ev.EventDate == nil || !ev.EventDate.Equal(date) {
		t.Errorf("event date = %v", ev.EventDate)
	}

	loose := task(t, j, "", "uncategorized")
	if got := entryIDs(j.Views.Entries.ByCollection("")); len(got) != 1 || got[0] != loose {
		t.Errorf("uncategorized = %v", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	j := testutil.NewJournal(t)
	head := j.Log.Sequence()

	_, err := j.CreateTask(ctx, journal.CreateTaskInput{Title: "   "})
	wantErr(t, err, apperr.ErrValidation)

	_, err = j.CreateTask(ctx, journal.CreateTaskInput{Title: strings.Repeat("é", journal.MaxTitleLength+1)})
	wantErr(t, err, apperr.ErrValidation)

	_, err = j.CreateTask(ctx, journal.CreateTaskInput{Title: strings.Repeat("é", journal.MaxTitleLength)})
	mustOK(t, err)

	_, err = j.CreateNote(ctx, journal.CreateNoteInput{Content: strings.Repeat("x", journal.MaxContentLength+1)})
	wantErr(t, err, apperr.ErrValidation)

	_, err = j.CreateTask(ctx, journal.CreateTaskInput{CollectionID: "nope", Title: "x"})
	wantErr(t, err, apperr.ErrNotFound)

	if got := j.Log.Sequence(); got != head+1 {
		t.Errorf("sequence = %d, want %d: rejected commands appended events", got, head+1)
	}
}

func TestCreateSubTask(t *testing.T) {
	j := testutil.NewJournal(t)
	list := collection(t, j, "Daily")
	parent := task(t, j, list, "parent")
	k1 := subTask(t, j, parent, "one")
	k2 := subTask(t, j, parent, "two")

	if got := entryIDs(j.Views.Tasks.SubTasks(parent)); len(got) != 2 || got[0] != k1 || got[1] != k2 {
		t.Fatalf("sub-tasks = %v", got)
	}
	if got := entryIDs(j.Views.Entries.ByCollection(list)); len(got) != 1 || got[0] != parent {
		t.Errorf("collection lists sub-tasks: %v", got)
	}
	kid, _ := j.Views.Entries.Get(k1)
	if kid.CollectionID != list {
		t.Errorf("sub-task collection = %q, want %q", kid.CollectionID, list)
	}

	_, err := j.CreateSubTask(ctx, journal.CreateSubTaskInput{ParentTaskID: k1, Title: "too deep"})
	wantErr(t, err, apperr.ErrValidation)

	note, _ := j.CreateNote(ctx, journal.CreateNoteInput{Content: "n"})
	_, err = j.CreateSubTask(ctx, journal.CreateSubTaskInput{ParentTaskID: note, Title: "x"})
	wantErr(t, err, apperr.ErrValidation)

	_, err = j.CreateSubTask(ctx, journal.CreateSubTaskInput{ParentTaskID: "missing", Title: "x"})
	wantErr(t, err, apperr.ErrNotFound)
}

func TestUpdate_NoOpWhenUnchanged(t *testing.T) {
	j := testutil.NewJournal(t)
	id := task(t, j, "", "Buy milk")
	head := j.Log.Sequence()

	mustOK(t, j.UpdateTaskTitle(ctx, journal.EditTextInput{EntryID: id, Text: "  Buy milk "}))
	if j.Log.Sequence() != head {
		t.Fatalf("unchanged title appended an event")
	}

	mustOK(t, j.UpdateTaskTitle(ctx, journal.EditTextInput{EntryID: id, Text: "Buy oat milk"}))
	if j.Log.Sequence() != head+1 {
		t.Fatalf("sequence = %d, want %d", j.Log.Sequence(), head+1)
	}
	if e, _ := j.Views.Entries.Get(id); e.Text() != "Buy oat milk" {
		t.Errorf("title = %q", e.Text())
	}

	note, _ := j.CreateNote(ctx, journal.CreateNoteInput{Content: "hello"})
	head = j.Log.Sequence()
	mustOK(t, j.UpdateNoteContent(ctx, journal.EditTextInput{EntryID: note, Text: "hello"}))
	if j.Log.Sequence() != head {
		t.Fatal("unchanged note appended an event")
	}
	err := j.UpdateEventContent(ctx, journal.EditTextInput{EntryID: note, Text: "x"})
	wantErr(t, err, apperr.ErrValidation)
}

func TestUpdateEventDate(t *testing.T) {
	j := testutil.NewJournal(t)
	id, err := j.CreateEvent(ctx, journal.CreateEventInput{Content: "Dentist"})
	mustOK(t, err)
	head := j.Log.Sequence()

	mustOK(t, j.UpdateEventDate(ctx, journal.EventDateInput{EntryID: id}))
	if j.Log.Sequence() != head {
		t.Fatal("clearing an empty date appended an event")
	}
	d := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)
	mustOK(t, j.UpdateEventDate(ctx, journal.EventDateInput{EntryID: id, EventDate: &d}))
	same := d.In(time.FixedZone("x", 3600))
	mustOK(t, j.UpdateEventDate(ctx, journal.EventDateInput{EntryID: id, EventDate: &same}))
	if j.Log.Sequence() != head+1 {
		t.Fatalf("sequence = %d, want %d", j.Log.Sequence(), head+1)
	}
}

func TestCompleteParentTask_CascadesInOneBatch(t *testing.T) {
	j := testutil.NewJournal(t)
	parent := task(t, j, "", "Plan trip")
	k1 := subTask(t, j, parent, "Book flights")
	k2 := subTask(t, j, parent, "Book hotel")
	k3 := subTask(t, j, parent, "Pack")
	mustOK(t, j.CompleteTask(ctx, k2))

	var batches [][]string
	unsubscribe := j.Log.Subscribe(func(batch []eventlog.Event) {
		var ids []string
		for _, ev := range batch {
			ids = append(ids, ev.EntityID)
		}
		batches = append(batches, ids)
	})
	defer unsubscribe()

	mustOK(t, j.CompleteParentTask(ctx, parent))

	if len(batches) != 1 {
		t.Fatalf("cascade committed %d batches, want 1", len(batches))
	}
	if got := strings.Join(batches[0], ","); got != strings.Join([]string{parent, k1, k3}, ",") {
		t.Errorf("batch entities = %s, want parent then open children in order", got)
	}
	for _, id := range []string{parent, k1, k2, k3} {
		if status(t, j, id) != models.StatusCompleted {
			t.Errorf("%s not completed", id)
		}
	}
	if st := j.Views.Tasks.CompletionStatus(parent); !st.AllComplete || st.Total != 3 {
		t.Errorf("status = %+v", st)
	}

	// Reopening a child leaves the parent completed.
	mustOK(t, j.ReopenTask(ctx, k1))
	if status(t, j, k1) != models.StatusOpen {
		t.Error("child not reopened")
	}
	if status(t, j, parent) != models.StatusCompleted {
		t.Error("reopening a child reopened the parent")
	}
	if st := j.Views.Tasks.CompletionStatus(parent); st.AllComplete || st.Completed != 2 {
		t.Errorf("status after reopen = %+v", st)
	}
}

func TestCompleteTask_Rules(t *testing.T) {
	j := testutil.NewJournal(t)
	parent := task(t, j, "", "parent")
	kid := subTask(t, j, parent, "kid")

	wantErr(t, j.CompleteTask(ctx, parent), apperr.ErrCascade)

	mustOK(t, j.CompleteTask(ctx, kid))
	head := j.Log.Sequence()
	mustOK(t, j.CompleteTask(ctx, kid))
	if j.Log.Sequence() != head {
		t.Error("completing a completed task appended an event")
	}
	mustOK(t, j.CompleteTask(ctx, parent))

	e, _ := j.Views.Entries.Get(parent)
	if tk, _ := e.Task(); tk.CompletedAt == nil {
		t.Error("completedAt not set")
	}
	mustOK(t, j.ReopenTask(ctx, parent))
	e, _ = j.Views.Entries.Get(parent)
	if tk, _ := e.Task(); tk.CompletedAt != nil {
		t.Error("completedAt kept after reopen")
	}

	note, _ := j.CreateNote(ctx, journal.CreateNoteInput{Content: "n"})
	wantErr(t, j.CompleteTask(ctx, note), apperr.ErrValidation)
	wantErr(t, j.CompleteTask(ctx, "missing"), apperr.ErrNotFound)
}

func TestDeleteParentTask_Cascades(t *testing.T) {
	j := testutil.NewJournal(t)
	list := collection(t, j, "Work")
	parent := task(t, j, list, "Release")
	k1 := subTask(t, j, parent, "Tag")
	k2 := subTask(t, j, parent, "Announce")
	other := task(t, j, list, "Other")

	wantErr(t, j.DeleteEntry(ctx, parent), apperr.ErrCascade)

	head := j.Log.Sequence()
	mustOK(t, j.DeleteParentTask(ctx, parent))
	if j.Log.Sequence() != head+3 {
		t.Fatalf("cascade appended %d events, want 3", j.Log.Sequence()-head)
	}
	for _, id := range []string{parent, k1, k2} {
		if _, ok := j.Views.Entries.Get(id); ok {
			t.Errorf("%s still present", id)
		}
	}
	if got := entryIDs(j.Views.Entries.ByCollection(list)); len(got) != 1 || got[0] != other {
		t.Errorf("collection = %v", got)
	}
	if len(j.Views.Tasks.SubTasks(parent)) != 0 {
		t.Error("task index still lists sub-tasks")
	}

	wantErr(t, j.DeleteEntry(ctx, parent), apperr.ErrNotFound)
	mustOK(t, j.DeleteEntry(ctx, other))
}

func TestMigrate_MoveLeavesGhost(t *testing.T) {
	j := testutil.NewJournal(t)
	monthly := collection(t, j, "Monthly")
	daily := collection(t, j, "Daily")
	existing := task(t, j, daily, "Already here")
	milk := task(t, j, monthly, "Buy milk")

	res, err := j.Migrate(ctx, journal.MigrateInput{EntryID: milk, TargetCollectionID: daily})
	mustOK(t, err)
	if res.GhostID == "" {
		t.Fatal("no ghost id returned")
	}

	ghosts := j.Views.Entries.Ghosts(monthly)
	if len(ghosts) != 1 || ghosts[0].Ghost == nil || ghosts[0].Ghost.ToCollectionID != daily || ghosts[0].Ghost.EntryID != milk {
		t.Fatalf("ghosts in Monthly = %+v", ghosts)
	}
	if len(j.Views.Entries.ByCollection(monthly)) != 0 {
		t.Error("Monthly still lists the live entry")
	}
	if got := entryIDs(j.Views.Entries.Timeline(monthly)); len(got) != 1 || got[0] != res.GhostID {
		t.Errorf("Monthly timeline = %v", got)
	}

	live := j.Views.Entries.ByCollection(daily)
	if got := entryIDs(live); len(got) != 2 || got[1] != milk {
		t.Fatalf("Daily = %v, want milk last", got)
	}
	ex, _ := j.Views.Entries.Get(existing)
	if live[1].OrderKey <= ex.OrderKey {
		t.Errorf("migrated key %q not after %q", live[1].OrderKey, ex.OrderKey)
	}

	// Ghosts are read-only but deletable.
	wantErr(t, j.UpdateTaskTitle(ctx, journal.EditTextInput{EntryID: res.GhostID, Text: "x"}), apperr.ErrValidation)
	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: res.GhostID, TargetCollectionID: daily})
	wantErr(t, err, apperr.ErrValidation)
	wantErr(t, j.Reorder(ctx, journal.ReorderInput{EntryID: res.GhostID}), apperr.ErrValidation)
	mustOK(t, j.DeleteEntry(ctx, res.GhostID))
	if len(j.Views.Entries.Ghosts(monthly)) != 0 {
		t.Error("ghost not deleted")
	}

	head := j.Log.Sequence()
	res, err = j.Migrate(ctx, journal.MigrateInput{EntryID: milk, TargetCollectionID: daily})
	mustOK(t, err)
	if res.GhostID != "" || j.Log.Sequence() != head {
		t.Error("moving into the current collection was not a no-op")
	}
}

func TestMigrate_MoveBackClearsGhost(t *testing.T) {
	j := testutil.NewJournal(t)
	monthly := collection(t, j, "Monthly")
	daily := collection(t, j, "Daily")
	milk := task(t, j, monthly, "Buy milk")

	first, err := j.Migrate(ctx, journal.MigrateInput{EntryID: milk, TargetCollectionID: daily})
	mustOK(t, err)
	second, err := j.Migrate(ctx, journal.MigrateInput{EntryID: milk, TargetCollectionID: monthly})
	mustOK(t, err)

	if _, ok := j.Views.Entries.Get(first.GhostID); ok {
		t.Errorf("ghost %s left in Monthly after moving back", first.GhostID)
	}
	if got := entryIDs(j.Views.Entries.Timeline(monthly)); len(got) != 1 || got[0] != milk {
		t.Errorf("Monthly timeline = %v, want only the live entry", got)
	}
	if got := entryIDs(j.Views.Entries.GhostsOf(milk)); len(got) != 1 || got[0] != second.GhostID {
		t.Errorf("ghosts of milk = %v, want [%s]", got, second.GhostID)
	}

	// Showing the entry in Daily again clears the ghost there too.
	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: milk, TargetCollectionID: daily, Mode: journal.MigrateAdd})
	mustOK(t, err)
	if len(j.Views.Entries.Ghosts(daily)) != 0 {
		t.Error("ghost left in Daily after adding the entry there")
	}
}

func TestDeleteEntry_RemovesGhosts(t *testing.T) {
	j := testutil.NewJournal(t)
	monthly := collection(t, j, "Monthly")
	daily := collection(t, j, "Daily")
	weekly := collection(t, j, "Weekly")
	milk := task(t, j, monthly, "Buy milk")
	_, err := j.Migrate(ctx, journal.MigrateInput{EntryID: milk, TargetCollectionID: daily})
	mustOK(t, err)
	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: milk, TargetCollectionID: weekly})
	mustOK(t, err)
	if n := len(j.Views.Entries.GhostsOf(milk)); n != 2 {
		t.Fatalf("ghosts = %d, want 2", n)
	}

	var batches [][]eventlog.Event
	unsubscribe := j.Log.Subscribe(func(batch []eventlog.Event) { batches = append(batches, batch) })
	defer unsubscribe()

	mustOK(t, j.DeleteEntry(ctx, milk))
	if len(batches) != 1 || len(batches[0]) != 3 {
		t.Fatalf("batches = %v, want one batch of 3 deletes", batches)
	}
	for _, c := range []string{monthly, daily} {
		if g := j.Views.Entries.Ghosts(c); len(g) != 0 {
			t.Errorf("dangling ghosts in %s: %v", c, entryIDs(g))
		}
	}
	if len(j.Views.Entries.GhostsOf(milk)) != 0 {
		t.Error("ghost index still holds milk")
	}
}

func TestDeleteParentTask_RemovesGhosts(t *testing.T) {
	j := testutil.NewJournal(t)
	monthly := collection(t, j, "Monthly")
	daily := collection(t, j, "Daily")
	trip := task(t, j, monthly, "Plan trip")
	subTask(t, j, trip, "Book flights")
	_, err := j.Migrate(ctx, journal.MigrateInput{EntryID: trip, TargetCollectionID: daily})
	mustOK(t, err)

	mustOK(t, j.DeleteParentTask(ctx, trip))
	if g := j.Views.Entries.Ghosts(monthly); len(g) != 0 {
		t.Errorf("dangling ghosts in Monthly: %v", entryIDs(g))
	}
}

func TestMigrate_MoveCarriesSubTasks(t *testing.T) {
	j := testutil.NewJournal(t)
	from := collection(t, j, "From")
	to := collection(t, j, "To")
	parent := task(t, j, from, "parent")
	k1 := subTask(t, j, parent, "one")
	k2 := subTask(t, j, parent, "two")

	_, err := j.Migrate(ctx, journal.MigrateInput{EntryID: k1, TargetCollectionID: to})
	wantErr(t, err, apperr.ErrValidation)

	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: parent, TargetCollectionID: to})
	mustOK(t, err)
	for _, id := range []string{k1, k2} {
		e, _ := j.Views.Entries.Get(id)
		if e.CollectionID != to {
			t.Errorf("%s collection = %q, want %q", id, e.CollectionID, to)
		}
	}
	if got := entryIDs(j.Views.Tasks.SubTasks(parent)); len(got) != 2 || got[0] != k1 || got[1] != k2 {
		t.Errorf("sub-task order = %v", got)
	}
}

func TestMigrate_AddKeepsOrigin(t *testing.T) {
	j := testutil.NewJournal(t)
	a := collection(t, j, "A")
	b := collection(t, j, "B")
	id := task(t, j, a, "shared")

	res, err := j.Migrate(ctx, journal.MigrateInput{EntryID: id, TargetCollectionID: b, Mode: journal.MigrateAdd})
	mustOK(t, err)
	if res.GhostID != "" {
		t.Error("add mode created a ghost")
	}
	for _, c := range []string{a, b} {
		if got := entryIDs(j.Views.Entries.ByCollection(c)); len(got) != 1 || got[0] != id {
			t.Errorf("collection %s = %v", c, got)
		}
	}
	if len(j.Views.Entries.Ghosts(a)) != 0 {
		t.Error("origin has a ghost")
	}

	head := j.Log.Sequence()
	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: id, TargetCollectionID: b, Mode: journal.MigrateAdd})
	mustOK(t, err)
	if j.Log.Sequence() != head {
		t.Error("adding twice appended an event")
	}
	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: id, TargetCollectionID: a, Mode: journal.MigrateAdd})
	wantErr(t, err, apperr.ErrValidation)
	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: id, Mode: journal.MigrateAdd})
	wantErr(t, err, apperr.ErrValidation)

	// Moving into a collection it is also shown in drops the extra membership.
	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: id, TargetCollectionID: b})
	mustOK(t, err)
	e, _ := j.Views.Entries.Get(id)
	if e.CollectionID != b || len(e.Also) != 0 {
		t.Errorf("entry = %+v", e)
	}
}

func TestMigrate_Targets(t *testing.T) {
	j := testutil.NewJournal(t)
	gone := collection(t, j, "Gone")
	id := task(t, j, "", "x")
	mustOK(t, j.DeleteCollection(ctx, gone))

	_, err := j.Migrate(ctx, journal.MigrateInput{EntryID: id, TargetCollectionID: gone})
	wantErr(t, err, apperr.ErrValidation)
	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: id, TargetCollectionID: "nope"})
	wantErr(t, err, apperr.ErrNotFound)
	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: "nope", TargetCollectionID: ""})
	wantErr(t, err, apperr.ErrNotFound)
	_, err = j.Migrate(ctx, journal.MigrateInput{EntryID: id, Mode: "copy"})
	wantErr(t, err, apperr.ErrValidation)
}

func TestBulkMigrate_StopsAtFirstFailure(t *testing.T) {
	j := testutil.NewJournal(t)
	from := collection(t, j, "From")
	to := collection(t, j, "To")
	a := task(t, j, from, "a")
	b := task(t, j, from, "b")
	c := task(t, j, from, "c")

	migrated, err := j.BulkMigrate(ctx, journal.BulkMigrateInput{
		EntryIDs:           []string{a, "missing", b, c},
		TargetCollectionID: to,
	})
	var bulkErr *journal.BulkMigrateError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("err = %v, want *BulkMigrateError", err)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err does not wrap the cause: %v", err)
	}
	if bulkErr.Failed != "missing" {
		t.Errorf("failed = %q", bulkErr.Failed)
	}
	if len(migrated) != 1 || migrated[0] != a || len(bulkErr.Migrated) != 1 {
		t.Errorf("migrated = %v / %v", migrated, bulkErr.Migrated)
	}
	if got := strings.Join(bulkErr.NotAttempted, ","); got != b+","+c {
		t.Errorf("not attempted = %s", got)
	}
	if got := strings.Join(bulkErr.Unmigrated(), ","); got != "missing,"+b+","+c {
		t.Errorf("unmigrated = %s", got)
	}

	// No rollback of the entry that made it.
	if e, _ := j.Views.Entries.Get(a); e.CollectionID != to {
		t.Errorf("a collection = %q, want %q", e.CollectionID, to)
	}
	if e, _ := j.Views.Entries.Get(b); e.CollectionID != from {
		t.Errorf("b moved although not attempted")
	}

	migrated, err = j.BulkMigrate(ctx, journal.BulkMigrateInput{EntryIDs: []string{b, c}, TargetCollectionID: to})
	mustOK(t, err)
	if len(migrated) != 2 {
		t.Errorf("migrated = %v", migrated)
	}
}

func TestReorder(t *testing.T) {
	j := testutil.NewJournal(t)
	list := collection(t, j, "List")
	a := task(t, j, list, "a")
	b := task(t, j, list, "b")
	c := task(t, j, list, "c")
	order := func() string { return strings.Join(entryIDs(j.Views.Entries.ByCollection(list)), ",") }

	mustOK(t, j.Reorder(ctx, journal.ReorderInput{EntryID: c, NextID: a}))
	if got, want := order(), c+","+a+","+b; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
	mustOK(t, j.Reorder(ctx, journal.ReorderInput{EntryID: c, PreviousID: a, NextID: b}))
	if got, want := order(), a+","+c+","+b; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
	mustOK(t, j.Reorder(ctx, journal.ReorderInput{EntryID: a, PreviousID: b}))
	if got, want := order(), c+","+b+","+a; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}

	head := j.Log.Sequence()
	mustOK(t, j.Reorder(ctx, journal.ReorderInput{EntryID: b, PreviousID: c, NextID: a}))
	if j.Log.Sequence() != head {
		t.Error("reorder into the current slot appended an event")
	}

	wantErr(t, j.Reorder(ctx, journal.ReorderInput{EntryID: a, PreviousID: b, NextID: c}), apperr.ErrValidation)
	wantErr(t, j.Reorder(ctx, journal.ReorderInput{EntryID: a}), apperr.ErrValidation)
	wantErr(t, j.Reorder(ctx, journal.ReorderInput{EntryID: a, PreviousID: a}), apperr.ErrValidation)

	other := task(t, j, "", "elsewhere")
	wantErr(t, j.Reorder(ctx, journal.ReorderInput{EntryID: a, PreviousID: other}), apperr.ErrValidation)
	mustOK(t, j.Reorder(ctx, journal.ReorderInput{EntryID: other}))
}

func TestReorder_SubTasksStayInParentScope(t *testing.T) {
	j := testutil.NewJournal(t)
	p := task(t, j, "", "p")
	k1 := subTask(t, j, p, "one")
	k2 := subTask(t, j, p, "two")
	top := task(t, j, "", "top")

	wantErr(t, j.Reorder(ctx, journal.ReorderInput{EntryID: k1, PreviousID: top}), apperr.ErrValidation)
	mustOK(t, j.Reorder(ctx, journal.ReorderInput{EntryID: k1, PreviousID: k2}))
	if got := entryIDs(j.Views.Tasks.SubTasks(p)); got[0] != k2 || got[1] != k1 {
		t.Errorf("sub-tasks = %v", got)
	}
}

func TestReorder_SecondaryMembership(t *testing.T) {
	j := testutil.NewJournal(t)
	a := collection(t, j, "A")
	b := collection(t, j, "B")
	shared := task(t, j, a, "shared")
	native := task(t, j, b, "native")
	home, _ := j.Views.Entries.Get(shared)
	_, err := j.Migrate(ctx, journal.MigrateInput{EntryID: shared, TargetCollectionID: b, Mode: journal.MigrateAdd})
	mustOK(t, err)

	mustOK(t, j.Reorder(ctx, journal.ReorderInput{EntryID: shared, CollectionID: b, NextID: native}))
	if got := entryIDs(j.Views.Entries.ByCollection(b)); got[0] != shared {
		t.Errorf("B = %v", got)
	}
	e, _ := j.Views.Entries.Get(shared)
	if e.OrderKey != home.OrderKey {
		t.Errorf("home key changed to %q", e.OrderKey)
	}
}

func TestCollections(t *testing.T) {
	j := testutil.NewJournal(t)
	a := collection(t, j, "A")
	b, err := j.CreateCollection(ctx, journal.CreateCollectionInput{Name: "May", Type: models.CollectionMonthly})
	mustOK(t, err)

	_, err = j.CreateCollection(ctx, journal.CreateCollectionInput{Name: "x", Type: "weekly"})
	wantErr(t, err, apperr.ErrValidation)
	_, err = j.CreateCollection(ctx, journal.CreateCollectionInput{Name: " "})
	wantErr(t, err, apperr.ErrValidation)

	mustOK(t, j.RenameCollection(ctx, journal.RenameCollectionInput{CollectionID: a, Name: "Inbox"}))
	head := j.Log.Sequence()
	mustOK(t, j.RenameCollection(ctx, journal.RenameCollectionInput{CollectionID: a, Name: "Inbox "}))
	mustOK(t, j.UnfavoriteCollection(ctx, a))
	if j.Log.Sequence() != head {
		t.Error("no-op collection commands appended events")
	}
	mustOK(t, j.FavoriteCollection(ctx, a))
	if c, _ := j.Views.Collections.Get(a); !c.IsFavorite || c.Name != "Inbox" {
		t.Errorf("collection = %+v", c)
	}

	settings := &models.CollectionSettings{CompletedTasks: models.CompletedHidden}
	mustOK(t, j.UpdateCollectionSettings(ctx, journal.SettingsInput{CollectionID: b, Settings: settings}))
	mustOK(t, j.UpdateCollectionSettings(ctx, journal.SettingsInput{CollectionID: b, Settings: &models.CollectionSettings{CollapseNotes: true}}))
	if c, _ := j.Views.Collections.Get(b); c.Settings.CompletedTasks != "" || !c.Settings.CollapseNotes {
		t.Errorf("settings not replaced wholesale: %+v", c.Settings)
	}
	err = j.UpdateCollectionSettings(ctx, journal.SettingsInput{CollectionID: b, Settings: &models.CollectionSettings{CompletedTasks: "sideways"}})
	wantErr(t, err, apperr.ErrValidation)

	mustOK(t, j.ReorderCollection(ctx, journal.ReorderCollectionInput{CollectionID: b, NextID: a}))
	if act := j.Views.Collections.Active(); act[0].ID != b {
		t.Errorf("active = %v", act)
	}

	entry := task(t, j, a, "kept")
	mustOK(t, j.DeleteCollection(ctx, a))
	mustOK(t, j.DeleteCollection(ctx, a))
	if d := j.Views.Collections.Deleted(); len(d) != 1 || d[0].ID != a {
		t.Fatalf("deleted = %+v", d)
	}
	if got := entryIDs(j.Views.Entries.ByCollection("")); len(got) != 1 || got[0] != entry {
		t.Errorf("orphaned entries not uncategorized: %v", got)
	}
	wantErr(t, j.RenameCollection(ctx, journal.RenameCollectionInput{CollectionID: a, Name: "x"}), apperr.ErrValidation)
	_, err = j.CreateTask(ctx, journal.CreateTaskInput{CollectionID: a, Title: "x"})
	wantErr(t, err, apperr.ErrValidation)

	mustOK(t, j.RestoreCollection(ctx, a))
	if len(j.Views.Collections.Deleted()) != 0 || len(j.Views.Entries.ByCollection("")) != 0 {
		t.Error("restore did not bring the collection back")
	}
	wantErr(t, j.DeleteCollection(ctx, "missing"), apperr.ErrNotFound)
}

func TestCapture(t *testing.T) {
	j := testutil.NewJournal(t)
	text := "---\ncollection: Groceries\n---\nt milk\n  t oat\nx eggs\nn shop closes at 8\ne 2026-05-14 market day\n"

	res, err := j.Capture(ctx, journal.CaptureInput{Text: text})
	mustOK(t, err)
	if !res.CreatedCollection || len(res.EntryIDs) != 5 {
		t.Fatalf("result = %+v", res)
	}
	c, ok := j.Views.Collections.Get(res.CollectionID)
	if !ok || c.Name != "Groceries" {
		t.Fatalf("collection = %+v", c)
	}
	if got := len(j.Views.Entries.ByCollection(res.CollectionID)); got != 4 {
		t.Errorf("top-level entries = %d, want 4", got)
	}
	if kids := j.Views.Tasks.SubTasks(res.EntryIDs[0]); len(kids) != 1 || kids[0].Text() != "oat" {
		t.Errorf("sub-tasks = %+v", kids)
	}
	if status(t, j, res.EntryIDs[2]) != models.StatusCompleted {
		t.Error("x bullet not completed")
	}

	again, err := j.Capture(ctx, journal.CaptureInput{Text: "# groceries\nbread\n"})
	mustOK(t, err)
	if again.CreatedCollection || again.CollectionID != res.CollectionID {
		t.Errorf("existing collection not reused: %+v", again)
	}

	head := j.Log.Sequence()
	_, err = j.Capture(ctx, journal.CaptureInput{Text: "e 2026-02-31 nope\n"})
	wantErr(t, err, apperr.ErrValidation)
	_, err = j.Capture(ctx, journal.CaptureInput{Text: "\n\n"})
	wantErr(t, err, apperr.ErrValidation)
	if j.Log.Sequence() != head {
		t.Error("rejected capture appended events")
	}
}

func TestCatchUp_SeesOtherWriter(t *testing.T) {
	db := testutil.TestDB(t)
	a := testutil.OpenJournal(t, db)
	home := collection(t, a, "Home")
	parent := task(t, a, home, "Clean garage")

	// A second writer on the same database, with its own ids.
	blog, err := eventlog.Open(ctx, db, eventlog.WithLogger(testutil.Logger()))
	mustOK(t, err)
	bviews := projection.NewSet()
	detach, err := bviews.Attach(ctx, blog)
	mustOK(t, err)
	defer detach()
	n := 0
	b := journal.New(blog, bviews, journal.WithLogger(testutil.Logger()), journal.WithIDGenerator(func() string {
		n++
		return "b-" + strings.Repeat("x", n)
	}))
	kid, err := b.CreateSubTask(ctx, journal.CreateSubTaskInput{ParentTaskID: parent, Title: "Sort tools"})
	mustOK(t, err)

	// Stale view: the store rejects the write.
	wantErr(t, a.DeleteParentTask(ctx, parent), apperr.ErrConflict)

	got, err := a.CatchUp(ctx)
	mustOK(t, err)
	if got != 1 {
		t.Fatalf("caught up %d events, want 1", got)
	}
	mustOK(t, a.DeleteParentTask(ctx, parent))
	if _, ok := a.Views.Entries.Get(kid); ok {
		t.Error("sub-task added by the other writer survived the cascade")
	}
}
