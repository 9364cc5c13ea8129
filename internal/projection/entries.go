package projection

import (
	"cmp"
	"slices"
	"sync"

	"github.com/starford/folio/internal/eventlog"
	"github.com/starford/folio/internal/models"
)

// Uncategorized is the collection id of entries that belong to no collection.
const Uncategorized = ""

type idSet map[string]struct{}

func (s idSet) add(id string)    { s[id] = struct{}{} }
func (s idSet) remove(id string) { delete(s, id) }

// EntryIndex holds live entries and ghosts.
//
// Entries whose home collection is soft-deleted are also listed under
// Uncategorized until the collection is restored.
type EntryIndex struct {
	hub

	mu       sync.RWMutex
	byID     map[string]*models.Entry
	members  map[string]idSet // top-level live entries per collection
	ghosts   map[string]idSet // ghosts per origin collection
	ghostsOf map[string]idSet // ghosts per live entry id
	deleted  idSet            // soft-deleted collection ids
}

func NewEntryIndex() *EntryIndex {
	return &EntryIndex{
		byID:     make(map[string]*models.Entry),
		members:  make(map[string]idSet),
		ghosts:   make(map[string]idSet),
		ghostsOf: make(map[string]idSet),
		deleted:  make(idSet),
	}
}

func (x *EntryIndex) Apply(batch []eventlog.Event) {
	x.mu.Lock()
	for _, ev := range batch {
		x.apply(ev)
	}
	x.mu.Unlock()
	x.publish(batch)
}

func (x *EntryIndex) set(m map[string]idSet, collectionID string) idSet {
	s, ok := m[collectionID]
	if !ok {
		s = make(idSet)
		m[collectionID] = s
	}
	return s
}

func (x *EntryIndex) apply(ev eventlog.Event) {
	switch ev.Kind {
	case models.KindCollectionDeleted:
		x.deleted.add(ev.EntityID)
		return
	case models.KindCollectionRestored:
		x.deleted.remove(ev.EntityID)
		return
	case models.KindEntryCreated:
		x.create(ev)
		return
	case models.KindGhostCreated:
		x.createGhost(ev)
		return
	}

	e, ok := x.byID[ev.EntityID]
	if !ok {
		return
	}
	switch ev.Kind {
	case models.KindEntryDeleted:
		x.remove(e)

	case models.KindEntryOrderChanged:
		var p models.EntryOrderChanged
		if ev.Decode(&p) != nil {
			return
		}
		if p.CollectionID == e.CollectionID {
			e.OrderKey = p.OrderKey
			return
		}
		for i := range e.Also {
			if e.Also[i].CollectionID == p.CollectionID {
				e.Also[i].OrderKey = p.OrderKey
			}
		}

	case models.KindEntryMigrated:
		var p models.EntryMigrated
		if ev.Decode(&p) != nil {
			return
		}
		topLevel := !e.IsSubTask() && !e.IsGhost()
		if topLevel {
			x.set(x.members, e.CollectionID).remove(e.ID)
		}
		e.CollectionID = p.To
		e.OrderKey = p.OrderKey
		e.Also = slices.DeleteFunc(e.Also, func(m models.Membership) bool { return m.CollectionID == p.To })
		if topLevel {
			x.set(x.members, p.To).add(e.ID)
		}

	case models.KindEntryLinked:
		var p models.EntryLinked
		if ev.Decode(&p) != nil || e.MemberOf(p.CollectionID) {
			return
		}
		e.Also = append(e.Also, models.Membership{CollectionID: p.CollectionID, OrderKey: p.OrderKey})
		x.set(x.members, p.CollectionID).add(e.ID)

	case models.KindTaskCompleted:
		if t, ok := e.Task(); ok {
			at := ev.Timestamp
			t.Status = models.StatusCompleted
			t.CompletedAt = &at
		}
	case models.KindTaskReopened:
		if t, ok := e.Task(); ok {
			t.Status = models.StatusOpen
			t.CompletedAt = nil
		}
	case models.KindTaskTitleUpdated:
		var p models.TaskTitleUpdated
		if t, ok := e.Task(); ok && ev.Decode(&p) == nil {
			t.Title = p.Title
		}
	case models.KindNoteContentUpdated:
		var p models.ContentUpdated
		if n, ok := e.Body.(*models.Note); ok && ev.Decode(&p) == nil {
			n.Content = p.Content
		}
	case models.KindEventContentUpdated:
		var p models.ContentUpdated
		if v, ok := e.Body.(*models.Event); ok && ev.Decode(&p) == nil {
			v.Content = p.Content
		}
	case models.KindEventDateUpdated:
		var p models.EventDateUpdated
		if v, ok := e.Body.(*models.Event); ok && ev.Decode(&p) == nil {
			v.EventDate = p.EventDate
		}
	}
}

func (x *EntryIndex) create(ev eventlog.Event) {
	var p models.EntryCreated
	if ev.Decode(&p) != nil {
		return
	}
	body := newBody(p)
	if body == nil {
		return
	}
	e := &models.Entry{
		ID:           ev.EntityID,
		CreatedAt:    ev.Timestamp,
		CollectionID: p.CollectionID,
		OrderKey:     p.OrderKey,
		Body:         body,
	}
	x.byID[e.ID] = e
	if !e.IsSubTask() {
		x.set(x.members, e.CollectionID).add(e.ID)
	}
}

// newBody builds the variant named by p.Type, or nil for an unknown type.
func newBody(p models.EntryCreated) models.Body {
	switch p.Type {
	case models.TypeTask:
		return &models.Task{Title: p.Title, Status: models.StatusOpen, ParentTaskID: p.ParentTaskID}
	case models.TypeNote:
		return &models.Note{Content: p.Content}
	case models.TypeEvent:
		return &models.Event{Content: p.Content, EventDate: p.EventDate}
	}
	return nil
}

func (x *EntryIndex) createGhost(ev eventlog.Event) {
	var p models.GhostCreated
	if ev.Decode(&p) != nil {
		return
	}
	live, ok := x.byID[p.EntryID]
	if !ok {
		return
	}
	g := live.Clone()
	g.ID = ev.EntityID
	g.CreatedAt = ev.Timestamp
	g.CollectionID = p.From
	g.OrderKey = p.OrderKey
	g.Also = nil
	g.Ghost = &models.Ghost{EntryID: p.EntryID, ToCollectionID: p.To}
	x.byID[g.ID] = &g
	x.set(x.ghosts, p.From).add(g.ID)
	x.set(x.ghostsOf, p.EntryID).add(g.ID)
}

func (x *EntryIndex) remove(e *models.Entry) {
	delete(x.byID, e.ID)
	if e.IsGhost() {
		x.set(x.ghosts, e.CollectionID).remove(e.ID)
		if of := x.ghostsOf[e.Ghost.EntryID]; of != nil {
			of.remove(e.ID)
			if len(of) == 0 {
				delete(x.ghostsOf, e.Ghost.EntryID)
			}
		}
		return
	}
	x.set(x.members, e.CollectionID).remove(e.ID)
	for _, m := range e.Also {
		x.set(x.members, m.CollectionID).remove(e.ID)
	}
}

// Get returns the entry or ghost with id.
func (x *EntryIndex) Get(id string) (models.Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.byID[id]
	if !ok {
		return models.Entry{}, false
	}
	return e.Clone(), true
}

// ByCollection returns the live top-level entries shown in collectionID in
// display order. Ghosts and sub-tasks are excluded. Uncategorized also lists
// entries whose home collection is soft-deleted.
func (x *EntryIndex) ByCollection(collectionID string) []models.Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := x.collect(x.members[collectionID])
	if collectionID == Uncategorized {
		for cid := range x.deleted {
			for id := range x.members[cid] {
				if e := x.byID[id]; e.CollectionID == cid {
					out = append(out, e.Clone())
				}
			}
		}
	}
	sortIn(out, collectionID)
	return out
}

// Members returns the top-level live entries whose home or secondary
// membership is collectionID, in display order. Unlike ByCollection it never
// includes orphans.
func (x *EntryIndex) Members(collectionID string) []models.Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := x.collect(x.members[collectionID])
	sortIn(out, collectionID)
	return out
}

// Ghosts returns the ghosts left in collectionID, in their original order.
func (x *EntryIndex) Ghosts(collectionID string) []models.Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := x.collect(x.ghosts[collectionID])
	sortIn(out, collectionID)
	return out
}

// GhostsOf returns the ghosts pointing at the live entry id, ordered by id.
func (x *EntryIndex) GhostsOf(id string) []models.Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := x.collect(x.ghostsOf[id])
	slices.SortFunc(out, func(a, b models.Entry) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Timeline returns live entries and ghosts of collectionID interleaved by
// order key, the way the collection is rendered.
func (x *EntryIndex) Timeline(collectionID string) []models.Entry {
	out := append(x.ByCollection(collectionID), x.Ghosts(collectionID)...)
	sortIn(out, collectionID)
	return out
}

// LastKey returns the greatest order key among the top-level entries of
// collectionID, ghosts included.
func (x *EntryIndex) LastKey(collectionID string) string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	last := ""
	for _, ids := range []idSet{x.members[collectionID], x.ghosts[collectionID]} {
		for id := range ids {
			if k := x.byID[id].KeyIn(collectionID); k > last {
				last = k
			}
		}
	}
	return last
}

// All returns every entry and ghost ordered by id.
func (x *EntryIndex) All() []models.Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]models.Entry, 0, len(x.byID))
	for _, e := range x.byID {
		out = append(out, e.Clone())
	}
	slices.SortFunc(out, func(a, b models.Entry) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (x *EntryIndex) collect(ids idSet) []models.Entry {
	out := make([]models.Entry, 0, len(ids))
	for id := range ids {
		out = append(out, x.byID[id].Clone())
	}
	return out
}

func sortIn(entries []models.Entry, collectionID string) {
	slices.SortFunc(entries, func(a, b models.Entry) int {
		return byKey(effectiveKey(a, collectionID), a.ID, effectiveKey(b, collectionID), b.ID)
	})
}

// effectiveKey is the entry's key inside collectionID, or its home key when
// it is listed there as an orphan.
func effectiveKey(e models.Entry, collectionID string) string {
	if e.MemberOf(collectionID) {
		return e.KeyIn(collectionID)
	}
	return e.OrderKey
}
