package projection

import (
	"slices"
	"sync"
	"time"

	"github.com/starford/folio/internal/eventlog"
	"github.com/starford/folio/internal/models"
)

// CompletionStatus summarises the direct sub-tasks of a parent task.
// AllComplete is false for a parent without sub-tasks.
type CompletionStatus struct {
	Total       int  `json:"total"`
	Completed   int  `json:"completed"`
	AllComplete bool `json:"all_complete"`
}

type taskRecord struct {
	id           string
	parentID     string
	collectionID string
	orderKey     string
	title        string
	status       models.TaskStatus
	createdAt    time.Time
	completedAt  *time.Time
}

func (r *taskRecord) entry() models.Entry {
	t := &models.Task{Title: r.title, Status: r.status, ParentTaskID: r.parentID}
	if r.completedAt != nil {
		at := *r.completedAt
		t.CompletedAt = &at
	}
	return models.Entry{
		ID:           r.id,
		CreatedAt:    r.createdAt,
		CollectionID: r.collectionID,
		OrderKey:     r.orderKey,
		Body:         t,
	}
}

// TaskIndex tracks live tasks and their parent/child structure.
type TaskIndex struct {
	hub

	mu       sync.RWMutex
	tasks    map[string]*taskRecord
	children map[string]idSet
}

func NewTaskIndex() *TaskIndex {
	return &TaskIndex{
		tasks:    make(map[string]*taskRecord),
		children: make(map[string]idSet),
	}
}

func (x *TaskIndex) Apply(batch []eventlog.Event) {
	x.mu.Lock()
	for _, ev := range batch {
		x.apply(ev)
	}
	x.mu.Unlock()
	x.publish(batch)
}

func (x *TaskIndex) apply(ev eventlog.Event) {
	if ev.Kind == models.KindEntryCreated {
		var p models.EntryCreated
		if ev.Decode(&p) != nil || p.Type != models.TypeTask {
			return
		}
		x.tasks[ev.EntityID] = &taskRecord{
			id:           ev.EntityID,
			parentID:     p.ParentTaskID,
			collectionID: p.CollectionID,
			orderKey:     p.OrderKey,
			title:        p.Title,
			status:       models.StatusOpen,
			createdAt:    ev.Timestamp,
		}
		if p.ParentTaskID != "" {
			s, ok := x.children[p.ParentTaskID]
			if !ok {
				s = make(idSet)
				x.children[p.ParentTaskID] = s
			}
			s.add(ev.EntityID)
		}
		return
	}

	r, ok := x.tasks[ev.EntityID]
	if !ok {
		return
	}
	switch ev.Kind {
	case models.KindTaskCompleted:
		at := ev.Timestamp
		r.status = models.StatusCompleted
		r.completedAt = &at
	case models.KindTaskReopened:
		r.status = models.StatusOpen
		r.completedAt = nil
	case models.KindTaskTitleUpdated:
		var p models.TaskTitleUpdated
		if ev.Decode(&p) == nil {
			r.title = p.Title
		}
	case models.KindEntryMigrated:
		var p models.EntryMigrated
		if ev.Decode(&p) == nil {
			r.collectionID = p.To
			r.orderKey = p.OrderKey
		}
	case models.KindEntryOrderChanged:
		var p models.EntryOrderChanged
		if ev.Decode(&p) == nil && p.CollectionID == r.collectionID {
			r.orderKey = p.OrderKey
		}
	case models.KindEntryDeleted:
		delete(x.tasks, r.id)
		if r.parentID != "" {
			x.children[r.parentID].remove(r.id)
		}
		delete(x.children, r.id)
	}
}

// Get returns the live task with id.
func (x *TaskIndex) Get(id string) (models.Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	r, ok := x.tasks[id]
	if !ok {
		return models.Entry{}, false
	}
	return r.entry(), true
}

// SubTasks returns the direct sub-tasks of parentID ordered by order key.
func (x *TaskIndex) SubTasks(parentID string) []models.Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := x.children[parentID]
	out := make([]models.Entry, 0, len(ids))
	for id := range ids {
		out = append(out, x.tasks[id].entry())
	}
	slices.SortFunc(out, func(a, b models.Entry) int {
		return byKey(a.OrderKey, a.ID, b.OrderKey, b.ID)
	})
	return out
}

// CompletionStatus counts the direct sub-tasks of parentID.
func (x *TaskIndex) CompletionStatus(parentID string) CompletionStatus {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var st CompletionStatus
	for id := range x.children[parentID] {
		st.Total++
		if x.tasks[id].status == models.StatusCompleted {
			st.Completed++
		}
	}
	st.AllComplete = st.Total > 0 && st.Completed == st.Total
	return st
}

// HasSubTasks reports whether parentID has at least one live sub-task.
func (x *TaskIndex) HasSubTasks(parentID string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.children[parentID]) > 0
}

// Parents returns the ids of tasks with sub-tasks, sorted.
func (x *TaskIndex) Parents() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, len(x.children))
	for id, kids := range x.children {
		if len(kids) > 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
