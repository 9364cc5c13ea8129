package projection

import (
	"cmp"
	"slices"
	"sync"

	"github.com/starford/folio/internal/eventlog"
	"github.com/starford/folio/internal/models"
)

// CollectionIndex holds every collection, active or soft-deleted.
type CollectionIndex struct {
	hub

	mu   sync.RWMutex
	byID map[string]*models.Collection
}

func NewCollectionIndex() *CollectionIndex {
	return &CollectionIndex{byID: make(map[string]*models.Collection)}
}

func (x *CollectionIndex) Apply(batch []eventlog.Event) {
	x.mu.Lock()
	for _, ev := range batch {
		x.apply(ev)
	}
	x.mu.Unlock()
	x.publish(batch)
}

func (x *CollectionIndex) apply(ev eventlog.Event) {
	if ev.Kind == models.KindCollectionCreated {
		var p models.CollectionCreated
		if ev.Decode(&p) != nil {
			return
		}
		x.byID[ev.EntityID] = &models.Collection{
			ID:        ev.EntityID,
			Name:      p.Name,
			Type:      p.Type,
			OrderKey:  p.OrderKey,
			CreatedAt: ev.Timestamp,
		}
		return
	}

	c, ok := x.byID[ev.EntityID]
	if !ok {
		return
	}
	switch ev.Kind {
	case models.KindCollectionRenamed:
		var p models.CollectionRenamed
		if ev.Decode(&p) == nil {
			c.Name = p.Name
		}
	case models.KindCollectionDeleted:
		at := ev.Timestamp
		c.DeletedAt = &at
	case models.KindCollectionRestored:
		c.DeletedAt = nil
	case models.KindCollectionSettingsUpdated:
		var p models.CollectionSettingsUpdated
		if ev.Decode(&p) == nil {
			c.Settings = p.Settings
		}
	case models.KindCollectionFavorited:
		c.IsFavorite = true
	case models.KindCollectionUnfavorited:
		c.IsFavorite = false
	case models.KindCollectionReordered:
		var p models.CollectionReordered
		if ev.Decode(&p) == nil {
			c.OrderKey = p.OrderKey
		}
	}
}

// Get returns the collection with id, including soft-deleted ones.
func (x *CollectionIndex) Get(id string) (models.Collection, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	c, ok := x.byID[id]
	if !ok {
		return models.Collection{}, false
	}
	return c.Clone(), true
}

// Active returns the live collections ordered by order key.
func (x *CollectionIndex) Active() []models.Collection {
	out := x.filter(func(c *models.Collection) bool { return !c.Deleted() })
	slices.SortFunc(out, func(a, b models.Collection) int {
		return byKey(a.OrderKey, a.ID, b.OrderKey, b.ID)
	})
	return out
}

// Favorites returns the live favorite collections ordered by order key.
func (x *CollectionIndex) Favorites() []models.Collection {
	return slices.DeleteFunc(x.Active(), func(c models.Collection) bool { return !c.IsFavorite })
}

// Deleted returns soft-deleted collections, most recently deleted first.
func (x *CollectionIndex) Deleted() []models.Collection {
	out := x.filter(func(c *models.Collection) bool { return c.Deleted() })
	slices.SortFunc(out, func(a, b models.Collection) int {
		if c := b.DeletedAt.Compare(*a.DeletedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// LastKey returns the greatest order key in use, deleted collections
// included, so that a restored collection never shares a key.
func (x *CollectionIndex) LastKey() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	last := ""
	for _, c := range x.byID {
		if c.OrderKey > last {
			last = c.OrderKey
		}
	}
	return last
}

// All returns every collection ordered by id.
func (x *CollectionIndex) All() []models.Collection {
	out := x.filter(func(*models.Collection) bool { return true })
	slices.SortFunc(out, func(a, b models.Collection) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (x *CollectionIndex) filter(keep func(*models.Collection) bool) []models.Collection {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]models.Collection, 0, len(x.byID))
	for _, c := range x.byID {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}
