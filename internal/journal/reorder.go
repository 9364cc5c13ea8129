package journal

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/orderkey"
)

// ReorderInput moves EntryID between PreviousID and NextID. Either neighbour
// may be empty to mean the start or end of the list; both may only be empty
// when the entry has no siblings. CollectionID picks a secondary membership
// to reorder in; empty means the entry's home collection.
type ReorderInput struct {
	EntryID      string `json:"entry_id"`
	PreviousID   string `json:"previous_id"`
	NextID       string `json:"next_id"`
	CollectionID string `json:"collection_id"`
}

func (in *ReorderInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.EntryID, validation.Required),
	)
}

// Reorder gives an entry a new order key among its siblings: the top-level
// entries of a collection, or the sub-tasks of one parent.
func (s *Service) Reorder(ctx context.Context, in ReorderInput) error {
	const op = "reorder"
	if err := in.Validate(); err != nil {
		return s.rejected(op, invalidInput(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.views.Entries.Get(in.EntryID)
	if !ok {
		return s.rejected(op, notFound("entry", in.EntryID))
	}
	if e.IsGhost() {
		return s.rejected(op, invalid("entry %q is a ghost", e.ID))
	}

	scope := e.CollectionID
	var siblings []models.Entry
	switch {
	case e.IsSubTask():
		siblings = s.views.Tasks.SubTasks(e.ParentTaskID())
	case in.CollectionID != "" && in.CollectionID != e.CollectionID:
		if !e.MemberOf(in.CollectionID) {
			return s.rejected(op, invalid("entry %q is not shown in collection %q", e.ID, in.CollectionID))
		}
		scope = in.CollectionID
		siblings = s.views.Entries.Members(scope)
	default:
		if err := s.checkTarget(scope); err != nil {
			return s.rejected(op, err)
		}
		siblings = s.views.Entries.Members(scope)
	}

	list := make([]sibling, len(siblings))
	for i, sib := range siblings {
		list[i] = sibling{id: sib.ID, key: sib.KeyIn(scope)}
	}
	key, move, err := place(list, e.ID, in.PreviousID, in.NextID)
	if err != nil {
		return s.rejected(op, err)
	}

	var b batch
	if move {
		b.add(e.ID, models.KindEntryOrderChanged, models.EntryOrderChanged{CollectionID: scope, OrderKey: key})
	}
	return s.commit(ctx, op, &b)
}

// ReorderCollectionInput moves CollectionID between two active collections.
type ReorderCollectionInput struct {
	CollectionID string `json:"collection_id"`
	PreviousID   string `json:"previous_id"`
	NextID       string `json:"next_id"`
}

func (in *ReorderCollectionInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.CollectionID, validation.Required),
	)
}

// ReorderCollection gives a collection a new order key among the active
// collections.
func (s *Service) ReorderCollection(ctx context.Context, in ReorderCollectionInput) error {
	const op = "reorder_collection"
	if err := in.Validate(); err != nil {
		return s.rejected(op, invalidInput(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTarget(in.CollectionID); err != nil {
		return s.rejected(op, err)
	}
	active := s.views.Collections.Active()
	list := make([]sibling, len(active))
	for i, c := range active {
		list[i] = sibling{id: c.ID, key: c.OrderKey}
	}
	key, move, err := place(list, in.CollectionID, in.PreviousID, in.NextID)
	if err != nil {
		return s.rejected(op, err)
	}

	var b batch
	if move {
		b.add(in.CollectionID, models.KindCollectionReordered, models.CollectionReordered{OrderKey: key})
	}
	return s.commit(ctx, op, &b)
}

type sibling struct {
	id  string
	key string
}

// place computes the key for selfID when moved between prevID and nextID.
// list holds every sibling, self included, in display order. move is false
// when self already sits there.
func place(list []sibling, selfID, prevID, nextID string) (key string, move bool, err error) {
	if prevID == selfID || nextID == selfID {
		return "", false, invalid("%q cannot be its own neighbour", selfID)
	}

	self := -1
	others := make([]sibling, 0, len(list))
	for i, sib := range list {
		if sib.id == selfID {
			self = i
			continue
		}
		others = append(others, sib)
	}
	if self < 0 {
		return "", false, invalid("%q is not in this list", selfID)
	}

	indexOf := func(id string) (int, error) {
		for i, sib := range others {
			if sib.id == id {
				return i, nil
			}
		}
		return -1, invalid("%q is not a sibling of %q", id, selfID)
	}

	var pi, ni int
	switch {
	case prevID == "" && nextID == "":
		if len(others) > 0 {
			return "", false, invalid("a previous or next sibling is required")
		}
		return "", false, nil
	case prevID != "" && nextID != "":
		if pi, err = indexOf(prevID); err != nil {
			return "", false, err
		}
		if ni, err = indexOf(nextID); err != nil {
			return "", false, err
		}
		if ni != pi+1 {
			return "", false, invalid("%q and %q are not adjacent", prevID, nextID)
		}
	case prevID != "":
		if pi, err = indexOf(prevID); err != nil {
			return "", false, err
		}
		ni = pi + 1
	default:
		if ni, err = indexOf(nextID); err != nil {
			return "", false, err
		}
		pi = ni - 1
	}

	if self == pi+1 {
		return "", false, nil
	}

	var prevKey, nextKey string
	if pi >= 0 {
		prevKey = others[pi].key
	}
	if ni < len(others) {
		nextKey = others[ni].key
	}
	key, err = orderkey.Between(prevKey, nextKey)
	if err != nil {
		return "", false, invalid("%v", err)
	}
	return key, true, nil
}
