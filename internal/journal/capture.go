package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/orderkey"
	"github.com/starford/folio/internal/parser"
)

// CaptureInput files rapid-log text. CollectionID, when set, wins over a
// collection named in the text. A named collection that does not exist yet
// is created.
type CaptureInput struct {
	Text         string `json:"text"`
	CollectionID string `json:"collection_id"`
}

// CaptureResult lists what a capture created, in text order. Sub-tasks
// follow their parent.
type CaptureResult struct {
	CollectionID      string   `json:"collection_id"`
	CreatedCollection bool     `json:"created_collection"`
	EntryIDs          []string `json:"entry_ids"`
}

// Capture parses text and creates every entry in one batch.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (CaptureResult, error) {
	const op = "capture"

	parsed, err := parser.Parse([]byte(in.Text))
	if err != nil {
		if errors.Is(err, parser.ErrSyntax) {
			return CaptureResult{}, s.rejected(op, fmt.Errorf("%w: %w", apperr.ErrValidation, err))
		}
		return CaptureResult{}, err
	}
	if len(parsed.Items) == 0 {
		return CaptureResult{}, s.rejected(op, invalid("nothing to capture"))
	}
	if err := checkItems(parsed.Items); err != nil {
		return CaptureResult{}, s.rejected(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		b   batch
		res CaptureResult
	)
	switch {
	case in.CollectionID != "":
		if err := s.checkTarget(in.CollectionID); err != nil {
			return CaptureResult{}, s.rejected(op, err)
		}
		res.CollectionID = in.CollectionID
	case parsed.Collection != "":
		if c, ok := s.collectionByName(parsed.Collection); ok {
			res.CollectionID = c.ID
			break
		}
		cin := CreateCollectionInput{Name: parsed.Collection}
		if err := cin.Validate(); err != nil {
			return CaptureResult{}, s.rejected(op, invalidInput(err))
		}
		id, err := s.addCollection(&b, cin)
		if err != nil {
			return CaptureResult{}, s.rejected(op, err)
		}
		res.CollectionID = id
		res.CreatedCollection = true
	}

	last := s.views.Entries.LastKey(res.CollectionID)
	for _, item := range parsed.Items {
		key, err := orderkey.After(last)
		if err != nil {
			return CaptureResult{}, s.rejected(op, invalid("%v", err))
		}
		last = key
		id := s.addItem(&b, item, res.CollectionID, key, "")
		res.EntryIDs = append(res.EntryIDs, id)

		childKey := ""
		for _, kid := range item.Children {
			if childKey, err = orderkey.After(childKey); err != nil {
				return CaptureResult{}, s.rejected(op, invalid("%v", err))
			}
			res.EntryIDs = append(res.EntryIDs, s.addItem(&b, kid, res.CollectionID, childKey, id))
		}
	}

	if err := s.commit(ctx, op, &b); err != nil {
		return CaptureResult{}, err
	}
	return res, nil
}

func (s *Service) addItem(b *batch, item parser.Item, collectionID, key, parentID string) string {
	id := s.newID()
	p := models.EntryCreated{
		Type:         item.Type,
		CollectionID: collectionID,
		OrderKey:     key,
		ParentTaskID: parentID,
	}
	switch item.Type {
	case models.TypeTask:
		p.Title = item.Text
	case models.TypeNote:
		p.Content = item.Text
	case models.TypeEvent:
		p.Content = item.Text
		p.EventDate = item.EventDate
	default:
		if b.err == nil {
			b.err = invalid("line %d: unknown entry type %q", item.Line, item.Type)
		}
		return id
	}
	b.add(id, models.KindEntryCreated, p)
	if item.Done {
		b.add(id, models.KindTaskCompleted, nil)
	}
	return id
}

// collectionByName finds an active collection, ignoring case.
func (s *Service) collectionByName(name string) (models.Collection, bool) {
	for _, c := range s.views.Collections.Active() {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return models.Collection{}, false
}

func checkItems(items []parser.Item) error {
	for _, item := range items {
		limit := MaxContentLength
		if item.Type == models.TypeTask {
			limit = MaxTitleLength
		}
		if n := utf8.RuneCountInString(item.Text); n > limit {
			return invalid("line %d: %d characters, at most %d allowed", item.Line, n, limit)
		}
		if err := checkItems(item.Children); err != nil {
			return err
		}
	}
	return nil
}
