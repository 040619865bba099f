// Package mirror replicates stored artifacts to the broadcast channel. The
// caption carrying the lookup key is placed on exactly one physical message
// per artifact: the full emission plan is computed up front, then executed,
// so no caption state is threaded through the send loop.
package mirror

import (
	"context"
	"fmt"

	"github.com/mzolotarev/filekeeper/internal/media"
	"github.com/mzolotarev/filekeeper/internal/storage"
)

// Transport abstracts the broadcast medium. Implementations send to one chat
// at a time and return provider message ids.
type Transport interface {
	// SendGroup posts the items as one multi-item message and returns the ids
	// of the resulting messages, head first. Captions apply per item.
	SendGroup(ctx context.Context, chatID int64, items []Captioned) ([]int, error)

	// SendSingle posts one item as a standalone message.
	SendSingle(ctx context.Context, chatID int64, item media.Item, caption string) (int, error)

	// EditCaption rewrites the caption of a previously sent message.
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error

	// DeleteMessage removes a previously sent message. A message that is
	// already gone is not an error.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Captioned pairs an item with the caption it is emitted with; the caption is
// empty for every message but one.
type Captioned struct {
	Item    media.Item
	Caption string
}

// Caption renders the annotation attached to the first replicated message of
// an artifact.
func Caption(key, note string) string {
	return fmt.Sprintf("key=%s note=%s", key, note)
}

// Replicator mirrors artifacts to a fixed broadcast channel.
type Replicator struct {
	transport Transport
	channelID int64
}

// NewReplicator builds a replicator posting to the given channel.
func NewReplicator(transport Transport, channelID int64) *Replicator {
	return &Replicator{transport: transport, channelID: channelID}
}

// plan is the precomputed emission order for one artifact: at most one
// grouped post followed by standalone messages, with the caption assigned to
// the first physical message overall.
type plan struct {
	group   []Captioned
	singles []Captioned
}

func buildPlan(items []media.Item, caption string) plan {
	var p plan
	for _, item := range items {
		if item.Kind.Groupable() {
			p.group = append(p.group, Captioned{Item: item})
		} else {
			p.singles = append(p.singles, Captioned{Item: item})
		}
	}
	switch {
	case len(p.group) > 0:
		p.group[0].Caption = caption
	case len(p.singles) > 0:
		p.singles[0].Caption = caption
	}
	return p
}

// execute sends the plan to chatID and returns the id of the first physical
// message produced. Any failure aborts the remaining sends; messages already
// sent are not retracted.
func (r *Replicator) execute(ctx context.Context, chatID int64, p plan) (int, error) {
	headRef := 0

	if len(p.group) > 0 {
		ids, err := r.transport.SendGroup(ctx, chatID, p.group)
		if err != nil {
			return 0, fmt.Errorf("send group: %w", err)
		}
		if len(ids) > 0 {
			headRef = ids[0]
		}
	}

	for _, single := range p.singles {
		id, err := r.transport.SendSingle(ctx, chatID, single.Item, single.Caption)
		if err != nil {
			return 0, fmt.Errorf("send %s: %w", single.Item.Kind, err)
		}
		if headRef == 0 {
			headRef = id
		}
	}

	return headRef, nil
}

// Replicate mirrors the artifact to the broadcast channel and returns the
// channel ref to record: the head of the grouped post when one exists, else
// the first standalone message. On error no ref is returned and the caller
// treats replication as failed; storage stays authoritative.
func (r *Replicator) Replicate(ctx context.Context, art *storage.Artifact) (int, error) {
	return r.execute(ctx, r.channelID, buildPlan(art.Items, Caption(art.Key, art.Note)))
}

// Deliver re-sends the artifact's content to an arbitrary chat using the same
// emission plan as channel replication. Used when a user redeems a key.
func (r *Replicator) Deliver(ctx context.Context, chatID int64, art *storage.Artifact) error {
	_, err := r.execute(ctx, chatID, buildPlan(art.Items, Caption(art.Key, art.Note)))
	return err
}
