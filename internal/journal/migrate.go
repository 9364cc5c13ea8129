package journal

import (
	"context"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/orderkey"
)

// MigrateMode selects how Migrate treats the origin collection.
type MigrateMode string

const (
	// MigrateMove relocates the entry and leaves a ghost in the origin.
	MigrateMove MigrateMode = "move"
	// MigrateAdd keeps the entry in its origin and also shows it in the
	// target.
	MigrateAdd MigrateMode = "add"
)

// MigrateInput moves or links EntryID to TargetCollectionID. An empty target
// means uncategorized; an empty mode means MigrateMove.
type MigrateInput struct {
	EntryID            string      `json:"entry_id"`
	TargetCollectionID string      `json:"target_collection_id"`
	Mode               MigrateMode `json:"mode"`
}

func (in *MigrateInput) Validate() error {
	if in.Mode == "" {
		in.Mode = MigrateMove
	}
	return validation.ValidateStruct(in,
		validation.Field(&in.EntryID, validation.Required),
		validation.Field(&in.Mode, validation.In(MigrateMove, MigrateAdd)),
	)
}

// MigrateResult describes a committed migration. Both fields are empty when
// the migration was a no-op.
type MigrateResult struct {
	GhostID  string `json:"ghost_id,omitempty"`
	OrderKey string `json:"order_key,omitempty"`
}

// Migrate moves an entry to another collection, leaving a ghost behind, or
// additionally shows it there. Sub-tasks follow their parent on a move and
// keep their order among themselves.
func (s *Service) Migrate(ctx context.Context, in MigrateInput) (MigrateResult, error) {
	const op = "migrate"
	if err := in.Validate(); err != nil {
		return MigrateResult{}, s.rejected(op, invalidInput(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.migrate(ctx, in)
	return res, s.rejected(op, err)
}

// migrate must be called with s.mu held and a validated input.
func (s *Service) migrate(ctx context.Context, in MigrateInput) (MigrateResult, error) {
	e, ok := s.views.Entries.Get(in.EntryID)
	if !ok {
		return MigrateResult{}, notFound("entry", in.EntryID)
	}
	if e.IsGhost() {
		return MigrateResult{}, invalid("entry %q is a ghost", e.ID)
	}
	if e.IsSubTask() {
		return MigrateResult{}, invalid("sub-task %q moves with its parent", e.ID)
	}
	target := in.TargetCollectionID
	if err := s.checkTarget(target); err != nil {
		return MigrateResult{}, err
	}

	var (
		b   batch
		res MigrateResult
	)
	switch in.Mode {
	case MigrateAdd:
		if target == "" {
			return MigrateResult{}, invalid("an entry cannot also be shown as uncategorized")
		}
		if target == e.CollectionID {
			return MigrateResult{}, invalid("entry %q already belongs to collection %q", e.ID, target)
		}
		if e.MemberOf(target) {
			return res, nil
		}
		key, err := orderkey.After(s.views.Entries.LastKey(target))
		if err != nil {
			return MigrateResult{}, invalid("%v", err)
		}
		res.OrderKey = key
		b.add(e.ID, models.KindEntryLinked, models.EntryLinked{CollectionID: target, OrderKey: key})
		s.deleteGhosts(&b, e.ID, target)

	default:
		if target == e.CollectionID {
			return res, nil
		}
		key, err := orderkey.After(s.views.Entries.LastKey(target))
		if err != nil {
			return MigrateResult{}, invalid("%v", err)
		}
		res.GhostID = s.newID()
		res.OrderKey = key
		b.add(res.GhostID, models.KindGhostCreated, models.GhostCreated{
			EntryID:  e.ID,
			From:     e.CollectionID,
			To:       target,
			OrderKey: e.OrderKey,
		})
		b.add(e.ID, models.KindEntryMigrated, models.EntryMigrated{From: e.CollectionID, To: target, OrderKey: key})
		for _, kid := range s.views.Tasks.SubTasks(e.ID) {
			b.add(kid.ID, models.KindEntryMigrated, models.EntryMigrated{From: e.CollectionID, To: target, OrderKey: kid.OrderKey})
		}
		s.deleteGhosts(&b, e.ID, target)
	}

	if err := s.commit(ctx, "migrate", &b); err != nil {
		return MigrateResult{}, err
	}
	return res, nil
}

// deleteGhosts adds a delete for every ghost of entryID left in
// collectionID. An entry shown live in a collection has no ghost there.
func (s *Service) deleteGhosts(b *batch, entryID, collectionID string) {
	for _, g := range s.views.Entries.GhostsOf(entryID) {
		if g.CollectionID == collectionID {
			b.add(g.ID, models.KindEntryDeleted, nil)
		}
	}
}

// deleteAllGhosts adds a delete for every ghost pointing at entryID.
func (s *Service) deleteAllGhosts(b *batch, entryID string) {
	for _, g := range s.views.Entries.GhostsOf(entryID) {
		b.add(g.ID, models.KindEntryDeleted, nil)
	}
}

// BulkMigrateInput migrates several entries to one target, in order.
type BulkMigrateInput struct {
	EntryIDs           []string    `json:"entry_ids"`
	TargetCollectionID string      `json:"target_collection_id"`
	Mode               MigrateMode `json:"mode"`
}

func (in *BulkMigrateInput) Validate() error {
	if in.Mode == "" {
		in.Mode = MigrateMove
	}
	return validation.ValidateStruct(in,
		validation.Field(&in.EntryIDs, validation.Required, validation.Each(validation.Required)),
		validation.Field(&in.Mode, validation.In(MigrateMove, MigrateAdd)),
	)
}

// BulkMigrate migrates each entry with its own batch and stops at the first
// failure, returning a *BulkMigrateError. Earlier migrations stay committed.
func (s *Service) BulkMigrate(ctx context.Context, in BulkMigrateInput) ([]string, error) {
	const op = "bulk_migrate"
	if err := in.Validate(); err != nil {
		return nil, s.rejected(op, invalidInput(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	migrated := make([]string, 0, len(in.EntryIDs))
	for i, id := range in.EntryIDs {
		_, err := s.migrate(ctx, MigrateInput{EntryID: id, TargetCollectionID: in.TargetCollectionID, Mode: in.Mode})
		if err != nil {
			bulkErr := &BulkMigrateError{
				Failed:       id,
				Err:          err,
				Migrated:     migrated,
				NotAttempted: append([]string(nil), in.EntryIDs[i+1:]...),
			}
			s.logger.Debug("journal: rejected",
				slog.String("op", op),
				slog.String("failed", id),
				slog.String("migrated", describe(bulkErr.Migrated)),
				slog.String("not_attempted", describe(bulkErr.NotAttempted)),
				slog.String("error", err.Error()))
			return migrated, bulkErr
		}
		migrated = append(migrated, id)
	}
	return migrated, nil
}
