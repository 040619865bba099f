package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mzolotarev/filekeeper/internal/keys"
	"github.com/mzolotarev/filekeeper/internal/mirror"
	"github.com/mzolotarev/filekeeper/internal/storage"
)

const helpText = `I store your files and hand out retrieval keys.

1. Send me photos, videos, or documents and I reply with a key.
   Files sent in quick succession share one key.
2. Send a key back to retrieve the stored files.
3. /list shows your stored files.
4. /update <key> <new note> changes a note.
5. /delete <key> removes a stored file.

Example: /update Ab3dEf90 final project version`

func (a *App) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	a.client.Notify(ctx, msg.Chat.ID, helpText)
}

func (a *App) handleList(ctx context.Context, msg *tgbotapi.Message) {
	summaries, err := a.store.ListByOwner(ctx, msg.From.ID)
	if err != nil {
		a.log.Error(ctx, "list failed", "owner", msg.From.ID, "error", err)
		a.client.Notify(ctx, msg.Chat.ID, "Listing failed, please try again.")
		return
	}
	if len(summaries) == 0 {
		a.client.Notify(ctx, msg.Chat.ID, "You have no stored files yet.")
		return
	}

	var b strings.Builder
	b.WriteString("Your files:\n\n")
	for i, s := range summaries {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, s.Key, s.Note)
	}
	b.WriteString("\nSend a key to retrieve its files.")
	a.client.Notify(ctx, msg.Chat.ID, b.String())
}

func (a *App) handleRename(ctx context.Context, msg *tgbotapi.Message) {
	key, note, ok := splitRenameArgs(msg.CommandArguments())
	if !ok {
		a.client.Notify(ctx, msg.Chat.ID, "Usage: /update <key> <new note>")
		return
	}
	if !keys.Valid(key) {
		a.client.Notify(ctx, msg.Chat.ID, "Malformed key: expected 8 letters or digits.")
		return
	}

	art, err := a.ownedArtifact(ctx, key, msg.From.ID)
	if err != nil {
		a.replyLookupError(ctx, msg.Chat.ID, err, "Update failed: no such file, or it is not yours.")
		return
	}
	if err := a.store.UpdateNote(ctx, key, msg.From.ID, note); err != nil {
		a.replyLookupError(ctx, msg.Chat.ID, err, "Update failed: no such file, or it is not yours.")
		return
	}

	// Caption edits only make sense for single-item posts; the head of a
	// media group captions one member out of many.
	if art.Kind == storage.KindSingle && art.ChannelRef != nil {
		if err := a.client.EditCaption(ctx, a.cfg.ChannelID, *art.ChannelRef, mirror.Caption(key, note)); err != nil {
			a.log.Warn(ctx, "channel caption edit failed", "key", key, "error", err)
		}
	}

	a.client.Notify(ctx, msg.Chat.ID, "Note updated to: "+note)
}

func (a *App) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	key := strings.TrimSpace(msg.CommandArguments())
	if key == "" || strings.ContainsRune(key, ' ') {
		a.client.Notify(ctx, msg.Chat.ID, "Usage: /delete <key>")
		return
	}
	if !keys.Valid(key) {
		a.client.Notify(ctx, msg.Chat.ID, "Malformed key: expected 8 letters or digits.")
		return
	}

	ref, err := a.store.Delete(ctx, key, msg.From.ID)
	if err != nil {
		a.replyLookupError(ctx, msg.Chat.ID, err, "Delete failed: no such file, or it is not yours.")
		return
	}
	if ref != nil {
		if err := a.client.DeleteMessage(ctx, a.cfg.ChannelID, *ref); err != nil {
			a.log.Warn(ctx, "channel message delete failed", "key", key, "ref", *ref, "error", err)
		}
	}

	a.client.Notify(ctx, msg.Chat.ID, fmt.Sprintf("Key %s and its files were deleted.", key))
}

func (a *App) handleKeyLookup(ctx context.Context, msg *tgbotapi.Message) {
	key := strings.TrimSpace(msg.Text)
	if !keys.Valid(key) {
		a.client.Notify(ctx, msg.Chat.ID, "Malformed key: expected 8 letters or digits.")
		return
	}

	art, err := a.store.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.client.Notify(ctx, msg.Chat.ID, "No file found for that key.")
			return
		}
		a.log.Error(ctx, "key lookup failed", "key", key, "error", err)
		a.client.Notify(ctx, msg.Chat.ID, "Lookup failed, please try again.")
		return
	}

	if err := a.replicator.Deliver(ctx, msg.Chat.ID, art); err != nil {
		a.log.Error(ctx, "artifact delivery failed", "key", key, "error", err)
		a.client.Notify(ctx, msg.Chat.ID, "Retrieval failed; the files may have been purged upstream.")
	}
}

// ownedArtifact loads the artifact under key and enforces ownership. A
// missing record and a foreign record are both ErrNotFound, so callers cannot
// probe for other users' keys.
func (a *App) ownedArtifact(ctx context.Context, key string, ownerID int64) (*storage.Artifact, error) {
	art, err := a.store.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if art.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return art, nil
}

func (a *App) replyLookupError(ctx context.Context, chatID int64, err error, notFoundText string) {
	if errors.Is(err, storage.ErrNotFound) {
		a.client.Notify(ctx, chatID, notFoundText)
		return
	}
	a.log.Error(ctx, "store operation failed", "error", err)
	a.client.Notify(ctx, chatID, "Something went wrong, please try again.")
}

// splitRenameArgs splits "/update <key> <note...>" arguments; the note keeps
// its internal spacing.
func splitRenameArgs(args string) (key, note string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	note = strings.TrimSpace(parts[1])
	if note == "" {
		return "", "", false
	}
	return parts[0], note, true
}
