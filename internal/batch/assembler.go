package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mzolotarev/filekeeper/internal/keys"
	"github.com/mzolotarev/filekeeper/internal/logging"
	"github.com/mzolotarev/filekeeper/internal/media"
	"github.com/mzolotarev/filekeeper/internal/storage"
)

// Mirror replicates a committed artifact to the broadcast channel and returns
// the channel ref of the first message produced.
type Mirror interface {
	Replicate(ctx context.Context, art *storage.Artifact) (int, error)
}

// Notifier delivers a status message back to the uploading user's chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string)
}

// keyAttempts bounds the collision-retry loop; the store's unique index
// stays authoritative regardless.
const keyAttempts = 5

// Assembler converts one detached burst of upload events into at most one
// persisted, replicated artifact.
type Assembler struct {
	store    storage.Store
	mirror   Mirror
	notifier Notifier
	log      logging.Logger
}

// NewAssembler wires an assembler to its collaborators.
func NewAssembler(store storage.Store, mirror Mirror, notifier Notifier, log logging.Logger) *Assembler {
	return &Assembler{store: store, mirror: mirror, notifier: notifier, log: log}
}

// Process assembles, persists, and replicates the burst. Events must belong
// to one owner and be in arrival order. Storage failure is reported to the
// owner and aborts replication; replication failure after a successful insert
// leaves the artifact stored without a channel ref and reports degraded
// success. A burst with no extractable media is dropped silently.
func (a *Assembler) Process(ctx context.Context, ownerID int64, events []media.UploadEvent) {
	if len(events) == 0 {
		return
	}
	chatID := events[0].ChatID

	art := a.assemble(ownerID, events)
	if art == nil {
		a.log.Warn(ctx, "burst had no extractable media, dropped", "owner", ownerID, "events", len(events))
		return
	}

	if err := a.insertWithFreshKey(ctx, art); err != nil {
		a.log.Error(ctx, "artifact insert failed", "owner", ownerID, "error", err)
		a.notifier.Notify(ctx, chatID, "Saving failed, please try again.")
		return
	}
	a.log.Info(ctx, "artifact stored", "owner", ownerID, "key", art.Key, "kind", art.Kind, "items", len(art.Items))

	ref, err := a.mirror.Replicate(ctx, art)
	if err != nil {
		a.log.Error(ctx, "channel replication failed", "key", art.Key, "error", err)
		a.notifier.Notify(ctx, chatID, fmt.Sprintf(
			"Stored, but mirroring to the channel failed.\n\nKey: %s\nNote: %s", art.Key, art.Note))
		return
	}
	if err := a.store.SetChannelRef(ctx, art.ID, ref); err != nil {
		a.log.Error(ctx, "recording channel ref failed", "key", art.Key, "error", err)
	}

	a.notifier.Notify(ctx, chatID, fmt.Sprintf(
		"Stored!\n\nKey: %s\nNote: %s\n\nSend the key to retrieve it, /list to see your files.", art.Key, art.Note))
}

// assemble builds the unpersisted artifact, or nil when the burst yields no
// items. A lone event is a single artifact unless the sending client batched
// it itself (media-group id set), in which case it is a batch of one.
func (a *Assembler) assemble(ownerID int64, events []media.UploadEvent) *storage.Artifact {
	if len(events) == 1 && events[0].GroupID == "" {
		ev := events[0]
		if ev.Item.Zero() {
			return nil
		}
		name := ev.DisplayName()
		note := ev.Caption
		if note == "" {
			note = name
		}
		return &storage.Artifact{
			OwnerID:      ownerID,
			Kind:         storage.KindSingle,
			Items:        []media.Item{ev.Item},
			OriginalName: name,
			Note:         note,
			CreatedAt:    time.Now().UTC(),
		}
	}

	var items []media.Item
	caption := ""
	for _, ev := range events {
		if caption == "" && ev.Caption != "" {
			caption = ev.Caption
		}
		if !ev.Item.Zero() {
			items = append(items, ev.Item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	note := caption
	if note == "" {
		note = fmt.Sprintf("collection of %d items", len(items))
	}
	return &storage.Artifact{
		OwnerID:      ownerID,
		Kind:         storage.KindBatch,
		Items:        items,
		OriginalName: "collection",
		Note:         note,
		CreatedAt:    time.Now().UTC(),
	}
}

// insertWithFreshKey generates a key and persists the artifact, retrying with
// a new key while the store reports a collision.
func (a *Assembler) insertWithFreshKey(ctx context.Context, art *storage.Artifact) error {
	var err error
	for attempt := 0; attempt < keyAttempts; attempt++ {
		art.Key = keys.Generate()
		err = a.store.Insert(ctx, art)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
	}
	return err
}
