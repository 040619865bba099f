// Package media defines the closed set of media kinds the bot handles and the
// transient upload event fed into the aggregation pipeline.
package media

import "fmt"

// Kind identifies a supported media variant.
type Kind string

const (
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Groupable reports whether the broadcast transport can bundle this kind with
// others into a single multi-item post.
func (k Kind) Groupable() bool {
	return k == KindPhoto || k == KindVideo
}

// Item is one stored unit of media: a kind plus the provider's opaque content
// reference (a Telegram file id).
type Item struct {
	Kind   Kind   `json:"kind"`
	FileID string `json:"file_id"`
}

// Zero reports whether the item carries no extractable media.
func (i Item) Zero() bool {
	return i.FileID == ""
}

// UploadEvent is a single incoming upload. Events are transient: they exist
// only between the update loop and the debounce buffer and are never persisted
// standalone.
type UploadEvent struct {
	OwnerID int64
	ChatID  int64
	Item    Item
	Caption string
	// GroupID is the provider-side media-group correlation id, set when the
	// sending client batched the upload itself (e.g. an album).
	GroupID string
	// FileName is the provider-reported display name, when one exists.
	FileName string
}

// DisplayName returns the best-effort original name for the event: the
// provider filename when present, otherwise a name synthesized from kind and
// owner.
func (e UploadEvent) DisplayName() string {
	if e.FileName != "" {
		return e.FileName
	}
	return fmt.Sprintf("%s_%d", e.Item.Kind, e.OwnerID)
}
