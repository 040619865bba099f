// Package bot runs the update loop and routes incoming messages to the
// aggregation pipeline and the maintenance commands.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mzolotarev/filekeeper/internal/batch"
	"github.com/mzolotarev/filekeeper/internal/config"
	"github.com/mzolotarev/filekeeper/internal/logging"
	"github.com/mzolotarev/filekeeper/internal/media"
	"github.com/mzolotarev/filekeeper/internal/mirror"
	"github.com/mzolotarev/filekeeper/internal/storage"
	"github.com/mzolotarev/filekeeper/internal/telegram"
)

// App coordinates the Telegram update stream, the debounce pipeline, and the
// maintenance commands.
type App struct {
	cfg        config.Config
	log        logging.Logger
	store      storage.Store
	client     *telegram.Client
	replicator *mirror.Replicator
	debouncer  *batch.Debouncer

	// runCtx is the context passed to Run; debounce flushes fire on timer
	// goroutines and inherit it.
	runCtx context.Context
}

// NewApp wires the application from its dependencies.
func NewApp(cfg config.Config, log logging.Logger, store storage.Store, client *telegram.Client) *App {
	app := &App{
		cfg:        cfg,
		log:        log,
		store:      store,
		client:     client,
		replicator: mirror.NewReplicator(client, cfg.ChannelID),
		runCtx:     context.Background(),
	}
	assembler := batch.NewAssembler(store, app.replicator, client, log)
	app.debouncer = batch.NewDebouncer(cfg.DebounceDelay, func(ownerID int64, events []media.UploadEvent) {
		assembler.Process(app.runCtx, ownerID, events)
	})
	return app
}

// Run migrates storage, verifies channel connectivity, and consumes updates
// until the context is canceled. A failing channel probe is fatal: no uploads
// are accepted if replication can never succeed.
func (a *App) Run(ctx context.Context) error {
	a.runCtx = ctx

	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := a.client.Probe(ctx, a.cfg.ChannelID); err != nil {
		return err
	}
	if err := a.client.RegisterCommands(ctx); err != nil {
		a.log.Warn(ctx, "command registration failed", "error", err)
	}
	a.log.Info(ctx, "bot started", "username", a.client.Username(), "channel", a.cfg.ChannelID)

	updates := a.client.Updates(a.cfg.PollTimeout)
	go func() {
		<-ctx.Done()
		a.client.StopReceiving()
	}()

	for update := range updates {
		a.route(ctx, update)
	}
	return nil
}

func (a *App) route(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	switch {
	case msg.IsCommand():
		a.routeCommand(ctx, msg)
	case hasMedia(msg):
		a.debouncer.Submit(toEvent(msg))
	case msg.Text != "":
		a.handleKeyLookup(ctx, msg)
	}
}

func (a *App) routeCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		a.handleStart(ctx, msg)
	case "list":
		a.handleList(ctx, msg)
	case "update":
		a.handleRename(ctx, msg)
	case "delete":
		a.handleDelete(ctx, msg)
	default:
		a.client.Notify(ctx, msg.Chat.ID, "Unknown command. Use /start for help.")
	}
}

func hasMedia(msg *tgbotapi.Message) bool {
	return len(msg.Photo) > 0 || msg.Video != nil || msg.Document != nil
}

// toEvent converts an incoming media message into an upload event. The
// largest photo size carries the canonical file id.
func toEvent(msg *tgbotapi.Message) media.UploadEvent {
	ev := media.UploadEvent{
		OwnerID: msg.From.ID,
		ChatID:  msg.Chat.ID,
		Caption: msg.Caption,
		GroupID: msg.MediaGroupID,
	}
	switch {
	case len(msg.Photo) > 0:
		ev.Item = media.Item{Kind: media.KindPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID}
	case msg.Video != nil:
		ev.Item = media.Item{Kind: media.KindVideo, FileID: msg.Video.FileID}
		ev.FileName = msg.Video.FileName
	case msg.Document != nil:
		ev.Item = media.Item{Kind: media.KindDocument, FileID: msg.Document.FileID}
		ev.FileName = msg.Document.FileName
	}
	return ev
}
