package journal

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/orderkey"
)

// CreateCollectionInput creates a collection at the end of the list. An
// empty Type means custom.
type CreateCollectionInput struct {
	Name string                `json:"name"`
	Type models.CollectionType `json:"type"`
}

func (in *CreateCollectionInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Type == "" {
		in.Type = models.CollectionCustom
	}
	return validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, MaxNameLength)),
		validation.Field(&in.Type, validation.In(collectionTypes()...)),
	)
}

func collectionTypes() []interface{} {
	out := make([]interface{}, len(models.CollectionTypes))
	for i, t := range models.CollectionTypes {
		out[i] = t
	}
	return out
}

// CreateCollection returns the id of the new collection.
func (s *Service) CreateCollection(ctx context.Context, in CreateCollectionInput) (string, error) {
	const op = "create_collection"
	if err := in.Validate(); err != nil {
		return "", s.rejected(op, invalidInput(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var b batch
	id, err := s.addCollection(&b, in)
	if err != nil {
		return "", s.rejected(op, err)
	}
	if err := s.commit(ctx, op, &b); err != nil {
		return "", err
	}
	return id, nil
}

// addCollection appends a creation event to b. in must be validated.
func (s *Service) addCollection(b *batch, in CreateCollectionInput) (string, error) {
	key, err := orderkey.After(s.views.Collections.LastKey())
	if err != nil {
		return "", invalid("%v", err)
	}
	id := s.newID()
	b.add(id, models.KindCollectionCreated, models.CollectionCreated{Name: in.Name, Type: in.Type, OrderKey: key})
	return id, nil
}

// RenameCollectionInput renames a live collection.
type RenameCollectionInput struct {
	CollectionID string `json:"collection_id"`
	Name         string `json:"name"`
}

func (in *RenameCollectionInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return validation.ValidateStruct(in,
		validation.Field(&in.CollectionID, validation.Required),
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, MaxNameLength)),
	)
}

func (s *Service) RenameCollection(ctx context.Context, in RenameCollectionInput) error {
	const op = "rename_collection"
	if err := in.Validate(); err != nil {
		return s.rejected(op, invalidInput(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.liveCollection(in.CollectionID)
	if err != nil {
		return s.rejected(op, err)
	}
	var b batch
	if c.Name != in.Name {
		b.add(c.ID, models.KindCollectionRenamed, models.CollectionRenamed{Name: in.Name})
	}
	return s.commit(ctx, op, &b)
}

// DeleteCollection soft-deletes a collection. Its entries are kept and read
// as uncategorized until the collection is restored.
func (s *Service) DeleteCollection(ctx context.Context, id string) error {
	const op = "delete_collection"

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.views.Collections.Get(id)
	if !ok {
		return s.rejected(op, notFound("collection", id))
	}
	var b batch
	if !c.Deleted() {
		b.add(c.ID, models.KindCollectionDeleted, nil)
	}
	return s.commit(ctx, op, &b)
}

// RestoreCollection brings back a soft-deleted collection.
func (s *Service) RestoreCollection(ctx context.Context, id string) error {
	const op = "restore_collection"

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.views.Collections.Get(id)
	if !ok {
		return s.rejected(op, notFound("collection", id))
	}
	var b batch
	if c.Deleted() {
		b.add(c.ID, models.KindCollectionRestored, nil)
	}
	return s.commit(ctx, op, &b)
}

// SettingsInput replaces the settings of a collection wholesale. A nil
// Settings clears them.
type SettingsInput struct {
	CollectionID string                     `json:"collection_id"`
	Settings     *models.CollectionSettings `json:"settings"`
}

func (in *SettingsInput) Validate() error {
	if err := validation.ValidateStruct(in, validation.Field(&in.CollectionID, validation.Required)); err != nil {
		return err
	}
	if in.Settings == nil {
		return nil
	}
	st := in.Settings
	return validation.ValidateStruct(st,
		validation.Field(&st.CompletedTasks, validation.In(models.CompletedInline, models.CompletedBottom, models.CompletedHidden)),
	)
}

func (s *Service) UpdateCollectionSettings(ctx context.Context, in SettingsInput) error {
	const op = "update_collection_settings"
	if err := in.Validate(); err != nil {
		return s.rejected(op, invalidInput(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.liveCollection(in.CollectionID)
	if err != nil {
		return s.rejected(op, err)
	}
	var b batch
	if !sameSettings(c.Settings, in.Settings) {
		b.add(c.ID, models.KindCollectionSettingsUpdated, models.CollectionSettingsUpdated{Settings: in.Settings})
	}
	return s.commit(ctx, op, &b)
}

func sameSettings(a, b *models.CollectionSettings) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Service) FavoriteCollection(ctx context.Context, id string) error {
	return s.setFavorite(ctx, "favorite_collection", id, true)
}

func (s *Service) UnfavoriteCollection(ctx context.Context, id string) error {
	return s.setFavorite(ctx, "unfavorite_collection", id, false)
}

func (s *Service) setFavorite(ctx context.Context, op, id string, favorite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.liveCollection(id)
	if err != nil {
		return s.rejected(op, err)
	}
	var b batch
	switch {
	case favorite && !c.IsFavorite:
		b.add(c.ID, models.KindCollectionFavorited, nil)
	case !favorite && c.IsFavorite:
		b.add(c.ID, models.KindCollectionUnfavorited, nil)
	}
	return s.commit(ctx, op, &b)
}

func (s *Service) liveCollection(id string) (models.Collection, error) {
	c, ok := s.views.Collections.Get(id)
	if !ok {
		return models.Collection{}, notFound("collection", id)
	}
	if c.Deleted() {
		return models.Collection{}, invalid("collection %q is deleted", id)
	}
	return c, nil
}
