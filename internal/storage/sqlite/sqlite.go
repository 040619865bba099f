// Package sqlite provides the GORM-backed SQLite implementation of
// storage.Store.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/mzolotarev/filekeeper/internal/config"
	"github.com/mzolotarev/filekeeper/internal/media"
	"github.com/mzolotarev/filekeeper/internal/storage"
)

// Store is a GORM-backed SQLite implementation of storage.Store.
type Store struct {
	db *gorm.DB
}

type artifactModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	OwnerID      int64  `gorm:"index"`
	Kind         string `gorm:"not null"`
	Payload      string `gorm:"not null"`
	Key          string `gorm:"uniqueIndex;size:8;not null"`
	OriginalName string
	Note         string
	ChannelRef   *int
	CreatedAt    time.Time
}

func (artifactModel) TableName() string { return "artifacts" }

// NewStore opens a SQLite database at the configured path.
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies schema updates.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&artifactModel{})
}

// Insert persists a new artifact and writes the assigned id back into art.
func (s *Store) Insert(ctx context.Context, art *storage.Artifact) error {
	if art == nil {
		return errors.New("nil artifact")
	}
	payload, err := json.Marshal(art.Items)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	model := artifactModel{
		OwnerID:      art.OwnerID,
		Kind:         string(art.Kind),
		Payload:      string(payload),
		Key:          art.Key,
		OriginalName: art.OriginalName,
		Note:         art.Note,
		CreatedAt:    art.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrDuplicateKey
		}
		return err
	}
	art.ID = model.ID
	return nil
}

// SetChannelRef records the replicated message reference for an artifact.
// The guard keeps the ref write-once at the storage layer rather than by
// call-site discipline.
func (s *Store) SetChannelRef(ctx context.Context, id int64, ref int) error {
	res := s.db.WithContext(ctx).
		Model(&artifactModel{}).
		Where("id = ? AND channel_ref IS NULL", id).
		Update("channel_ref", ref)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrChannelRefSet
	}
	return nil
}

// FindByKey retrieves the artifact stored under key.
func (s *Store) FindByKey(ctx context.Context, key string) (*storage.Artifact, error) {
	var model artifactModel
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return toArtifact(&model)
}

// ListByOwner returns the owner's artifacts, most recent first.
func (s *Store) ListByOwner(ctx context.Context, ownerID int64) ([]storage.Summary, error) {
	var models []artifactModel
	err := s.db.WithContext(ctx).
		Select("key", "note").
		Where("owner_id = ?", ownerID).
		Order("id DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	summaries := make([]storage.Summary, 0, len(models))
	for _, m := range models {
		summaries = append(summaries, storage.Summary{Key: m.Key, Note: m.Note})
	}
	return summaries, nil
}

// UpdateNote replaces the note of an owned artifact.
func (s *Store) UpdateNote(ctx context.Context, key string, ownerID int64, note string) error {
	res := s.db.WithContext(ctx).
		Model(&artifactModel{}).
		Where("key = ? AND owner_id = ?", key, ownerID).
		Update("note", note)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes an owned artifact and returns its channel ref.
func (s *Store) Delete(ctx context.Context, key string, ownerID int64) (*int, error) {
	var ref *int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model artifactModel
		if err := tx.Where("key = ? AND owner_id = ?", key, ownerID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&artifactModel{}, model.ID).Error; err != nil {
			return err
		}
		ref = model.ChannelRef
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func toArtifact(model *artifactModel) (*storage.Artifact, error) {
	var items []media.Item
	if err := json.Unmarshal([]byte(model.Payload), &items); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &storage.Artifact{
		ID:           model.ID,
		OwnerID:      model.OwnerID,
		Kind:         storage.ArtifactKind(model.Kind),
		Items:        items,
		Key:          model.Key,
		OriginalName: model.OriginalName,
		Note:         model.Note,
		ChannelRef:   model.ChannelRef,
		CreatedAt:    model.CreatedAt,
	}, nil
}
