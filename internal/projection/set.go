package projection

import (
	"context"
	"fmt"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/eventlog"
	"github.com/starford/folio/internal/models"
)

const replayChunk = 512

// Set bundles the read models the journal service validates against, plus
// any extra projections fed from the same log.
type Set struct {
	Collections *CollectionIndex
	Entries     *EntryIndex
	Tasks       *TaskIndex

	extra []Projection
}

// NewSet returns empty indexes. Extra projections are applied after the
// built-in ones, in the order given.
func NewSet(extra ...Projection) *Set {
	return &Set{
		Collections: NewCollectionIndex(),
		Entries:     NewEntryIndex(),
		Tasks:       NewTaskIndex(),
		extra:       extra,
	}
}

// Apply folds batch into every projection of the set.
func (s *Set) Apply(batch []eventlog.Event) {
	s.Collections.Apply(batch)
	s.Entries.Apply(batch)
	s.Tasks.Apply(batch)
	for _, p := range s.extra {
		p.Apply(batch)
	}
}

// Attach replays log into the set and keeps it current with later commits.
func (s *Set) Attach(ctx context.Context, log *eventlog.Log) (detach func(), err error) {
	return log.Follow(ctx, replayChunk, s.Apply)
}

type snapshot struct {
	Collections []models.Collection `json:"collections"`
	Entries     []models.Entry      `json:"entries"`
	Tasks       []taskTree          `json:"tasks"`
}

type taskTree struct {
	ParentID string           `json:"parent_id"`
	Children []string         `json:"children"`
	Status   CompletionStatus `json:"status"`
}

// Digest returns a SHA-256 over a canonical snapshot of the indexes. Two sets
// folded from the same events have the same digest.
func (s *Set) Digest() (string, error) {
	snap := snapshot{
		Collections: s.Collections.All(),
		Entries:     s.Entries.All(),
	}
	for _, parent := range s.Tasks.Parents() {
		tree := taskTree{ParentID: parent, Status: s.Tasks.CompletionStatus(parent)}
		for _, child := range s.Tasks.SubTasks(parent) {
			tree.Children = append(tree.Children, child.ID)
		}
		snap.Tasks = append(snap.Tasks, tree)
	}
	sum, err := checksum.JSON(snap)
	if err != nil {
		return "", fmt.Errorf("projection: digest: %w", err)
	}
	return sum, nil
}
