// Package storage defines the persisted artifact record and the store
// contract the rest of the bot is written against.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mzolotarev/filekeeper/internal/media"
)

// ArtifactKind distinguishes a single stored file from a committed batch.
type ArtifactKind string

const (
	KindSingle ArtifactKind = "single"
	KindBatch  ArtifactKind = "batch"
)

// Artifact is one persisted, user-retrievable unit of stored media.
type Artifact struct {
	ID      int64
	OwnerID int64
	Kind    ArtifactKind
	// Items is the ordered payload; exactly one element for KindSingle,
	// insertion order is significant for KindBatch.
	Items []media.Item
	// Key is the public 8-character lookup token, unique and immutable.
	Key string
	// OriginalName is the best-effort display name, immutable.
	OriginalName string
	// Note is the owner-editable annotation.
	Note string
	// ChannelRef is the message id of the first replicated channel message.
	// Write-once: nil until replication succeeds, cleared only by deletion of
	// the whole artifact.
	ChannelRef *int
	CreatedAt  time.Time
}

// Summary is one row of an owner's artifact listing.
type Summary struct {
	Key  string
	Note string
}

// Store defines persistence operations used by the bot.
type Store interface {
	Close() error
	Migrate(ctx context.Context) error

	// Insert persists the artifact and assigns its ID. Returns
	// ErrDuplicateKey when the key is already taken.
	Insert(ctx context.Context, art *Artifact) error

	// SetChannelRef records the replicated message reference for an
	// artifact. The ref is write-once: a repeat write, or a write against an
	// artifact that no longer exists, returns ErrChannelRefSet.
	SetChannelRef(ctx context.Context, id int64, ref int) error

	// FindByKey returns the artifact stored under key, or ErrNotFound.
	FindByKey(ctx context.Context, key string) (*Artifact, error)

	// ListByOwner returns the owner's artifacts, most recent first.
	ListByOwner(ctx context.Context, ownerID int64) ([]Summary, error)

	// UpdateNote replaces the note of the artifact stored under key, provided
	// ownerID owns it. A missing key and a foreign key are indistinguishable:
	// both return ErrNotFound.
	UpdateNote(ctx context.Context, key string, ownerID int64, note string) error

	// Delete removes the artifact stored under key, provided ownerID owns it,
	// and returns its channel ref (nil if never replicated). A missing key
	// and a foreign key both return ErrNotFound.
	Delete(ctx context.Context, key string, ownerID int64) (*int, error)
}

var (
	// ErrNotFound indicates the record does not exist or the caller does not
	// own it.
	ErrNotFound = errors.New("artifact not found")
	// ErrDuplicateKey indicates a lookup-key collision on insert.
	ErrDuplicateKey = errors.New("duplicate artifact key")
	// ErrChannelRefSet indicates an attempt to overwrite an artifact's
	// channel ref, or to set one on a deleted artifact.
	ErrChannelRefSet = errors.New("channel ref already set")
)
