package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzolotarev/filekeeper/internal/media"
	"github.com/mzolotarev/filekeeper/internal/storage"
)

// -------- test fakes --------

type sentGroup struct {
	chatID int64
	items  []Captioned
}

type sentSingle struct {
	chatID  int64
	item    media.Item
	caption string
}

type fakeTransport struct {
	Transport

	groups  []sentGroup
	singles []sentSingle

	nextID int
	// failAt makes the nth physical send call fail (1-based, counting group
	// and single sends together); 0 disables.
	failAt int
	calls  int
}

func (f *fakeTransport) SendGroup(ctx context.Context, chatID int64, items []Captioned) ([]int, error) {
	f.calls++
	if f.failAt == f.calls {
		return nil, errors.New("transport down")
	}
	f.groups = append(f.groups, sentGroup{chatID: chatID, items: items})
	ids := make([]int, len(items))
	for i := range ids {
		f.nextID++
		ids[i] = f.nextID
	}
	return ids, nil
}

func (f *fakeTransport) SendSingle(ctx context.Context, chatID int64, item media.Item, caption string) (int, error) {
	f.calls++
	if f.failAt == f.calls {
		return 0, errors.New("transport down")
	}
	f.singles = append(f.singles, sentSingle{chatID: chatID, item: item, caption: caption})
	f.nextID++
	return f.nextID, nil
}

func artifact(items ...media.Item) *storage.Artifact {
	return &storage.Artifact{
		OwnerID: 7,
		Kind:    storage.KindBatch,
		Items:   items,
		Key:     "Ab3dEf90",
		Note:    "final",
	}
}

func captionCount(tr *fakeTransport) int {
	n := 0
	for _, g := range tr.groups {
		for _, it := range g.items {
			if it.Caption != "" {
				n++
			}
		}
	}
	for _, s := range tr.singles {
		if s.caption != "" {
			n++
		}
	}
	return n
}

// -------- tests --------

func TestReplicateMixedArtifact(t *testing.T) {
	tr := &fakeTransport{}
	r := NewReplicator(tr, -100)

	ref, err := r.Replicate(context.Background(), artifact(
		media.Item{Kind: media.KindPhoto, FileID: "p1"},
		media.Item{Kind: media.KindDocument, FileID: "d1"},
		media.Item{Kind: media.KindVideo, FileID: "v1"},
		media.Item{Kind: media.KindDocument, FileID: "d2"},
	))
	require.NoError(t, err)

	// One grouped post with both groupable items, then the documents in order.
	require.Len(t, tr.groups, 1)
	assert.Equal(t, int64(-100), tr.groups[0].chatID)
	require.Len(t, tr.groups[0].items, 2)
	assert.Equal(t, "p1", tr.groups[0].items[0].Item.FileID)
	assert.Equal(t, "v1", tr.groups[0].items[1].Item.FileID)

	require.Len(t, tr.singles, 2)
	assert.Equal(t, "d1", tr.singles[0].item.FileID)
	assert.Equal(t, "d2", tr.singles[1].item.FileID)

	// Exactly one caption, on the head of the grouped post.
	assert.Equal(t, 1, captionCount(tr))
	assert.Equal(t, "key=Ab3dEf90 note=final", tr.groups[0].items[0].Caption)

	// The channel ref is the grouped post's head message.
	assert.Equal(t, 1, ref)
}

func TestReplicateDocumentsOnly(t *testing.T) {
	tr := &fakeTransport{}
	r := NewReplicator(tr, -100)

	ref, err := r.Replicate(context.Background(), artifact(
		media.Item{Kind: media.KindDocument, FileID: "d1"},
		media.Item{Kind: media.KindDocument, FileID: "d2"},
	))
	require.NoError(t, err)

	assert.Empty(t, tr.groups)
	require.Len(t, tr.singles, 2)
	assert.Equal(t, "key=Ab3dEf90 note=final", tr.singles[0].caption)
	assert.Empty(t, tr.singles[1].caption)
	assert.Equal(t, 1, ref, "ref is the first standalone message")
}

func TestReplicateAbortsAfterFailure(t *testing.T) {
	tr := &fakeTransport{failAt: 2}
	r := NewReplicator(tr, -100)

	ref, err := r.Replicate(context.Background(), artifact(
		media.Item{Kind: media.KindDocument, FileID: "d1"},
		media.Item{Kind: media.KindDocument, FileID: "d2"},
		media.Item{Kind: media.KindDocument, FileID: "d3"},
	))
	require.Error(t, err)
	assert.Zero(t, ref, "a failed replication records no ref")
	require.Len(t, tr.singles, 1, "sends after the failure are aborted, earlier ones stand")
	assert.Equal(t, "d1", tr.singles[0].item.FileID)
}

func TestReplicateGroupFailure(t *testing.T) {
	tr := &fakeTransport{failAt: 1}
	r := NewReplicator(tr, -100)

	_, err := r.Replicate(context.Background(), artifact(
		media.Item{Kind: media.KindPhoto, FileID: "p1"},
		media.Item{Kind: media.KindDocument, FileID: "d1"},
	))
	require.Error(t, err)
	assert.Empty(t, tr.singles, "singleton sends are aborted when the grouped post fails")
}

func TestDeliverTargetsRequestedChat(t *testing.T) {
	tr := &fakeTransport{}
	r := NewReplicator(tr, -100)

	err := r.Deliver(context.Background(), 777, artifact(
		media.Item{Kind: media.KindPhoto, FileID: "p1"},
		media.Item{Kind: media.KindDocument, FileID: "d1"},
	))
	require.NoError(t, err)
	require.Len(t, tr.groups, 1)
	assert.Equal(t, int64(777), tr.groups[0].chatID)
	require.Len(t, tr.singles, 1)
	assert.Equal(t, int64(777), tr.singles[0].chatID)
	assert.Equal(t, 1, captionCount(tr))
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "key=Ab3dEf90 note=final", Caption("Ab3dEf90", "final"))
}
