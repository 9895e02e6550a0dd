package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"prism-sync/board"
	"prism-sync/config"
	"prism-sync/httpclient"
	"prism-sync/router"
	"prism-sync/service"
	"prism-sync/stream"
)

func main() {
	cfg, err := config.LoadAgent()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.Token == "" {
		log.Fatal("missing PRISM_TOKEN")
	}
	logger := log.New()
	logger.SetLevel(log.GetLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := board.NewStore()
	notes := board.NewNotifications(0)
	tokens := stream.StaticToken(cfg.Token)
	client := httpclient.New(cfg.APIURL, tokens, cfg.RequestTimeout)
	svc := service.New(store, client, cfg.RequestTimeout, logger)

	if err := svc.Resync(ctx); err != nil {
		log.Fatalf("initial sync: %v", err)
	}
	boardID := cfg.BoardID
	if boardID == "" {
		if boards := store.Boards(); len(boards) > 0 {
			boardID = boards[0].ID
		}
	}
	if err := svc.SelectBoard(ctx, boardID); err != nil {
		log.Fatalf("select board: %v", err)
	}

	settings := stream.DefaultSettings()
	settings.ReconnectBase = cfg.ReconnectBase
	settings.ReconnectMax = cfg.ReconnectMax
	settings.PingInterval = cfg.PingInterval
	settings.ReadTimeout = cfg.ReadTimeout
	settings.OnStatus = func(st stream.Status) {
		logger.WithField("status", string(st)).Info("agent.stream.status")
		// events missed while offline are never replayed. Resync refetches
		// when an event lands during the fetch, so newer events survive.
		if st == stream.StatusConnected {
			go func() {
				if err := svc.Resync(ctx); err != nil {
					logger.WithError(err).Warn("agent.resync.failed")
				}
			}()
		}
	}
	manager := stream.NewManager(cfg.EventsURL, tokens, router.New(store, notes, logger), settings, logger)
	manager.Connect()

	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()
	logger.WithFields(log.Fields{"board_id": boardID, "api": cfg.APIURL}).Info("agent.started")
	for {
		select {
		case <-ctx.Done():
			manager.Close()
			svc.Drag.Wait()
			logger.Info("agent.stopped")
			return
		case <-changes:
			snap := store.Snapshot()
			logger.WithFields(log.Fields{
				"version":   snap.Version,
				"cards":     snap.Columns.Len(),
				"unread":    notes.Unread(),
				"conflicts": len(notes.Merges()),
			}).Debug("agent.board.changed")
		}
	}
}
