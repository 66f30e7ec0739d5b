// Background worker binary: wires the Scheduler (C6) and Dispatcher
// worker pool (C7) against the persistence, broker, secret store, and
// platform adapter collaborators, then runs both until SIGINT/SIGTERM,
// grounded on the teacher's WorkerApp/NewWorkerApp/Start/Cleanup
// shape (N goroutines, os/signal + context.WithTimeout graceful
// shutdown).
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/videocast/scheduler/internal/app"
	"github.com/videocast/scheduler/internal/beat"
	"github.com/videocast/scheduler/internal/broker"
	"github.com/videocast/scheduler/internal/broker/asynqbroker"
	"github.com/videocast/scheduler/internal/broker/memorybroker"
	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/config"
	"github.com/videocast/scheduler/internal/dispatcher"
	"github.com/videocast/scheduler/internal/governor"
	applog "github.com/videocast/scheduler/internal/log"
	"github.com/videocast/scheduler/internal/objectstore"
	"github.com/videocast/scheduler/internal/objectstore/fsstore"
	"github.com/videocast/scheduler/internal/platformcore"
	"github.com/videocast/scheduler/internal/platformcore/adapters/facebook"
	"github.com/videocast/scheduler/internal/platformcore/adapters/instagram"
	"github.com/videocast/scheduler/internal/platformcore/adapters/tiktok"
	"github.com/videocast/scheduler/internal/platformcore/adapters/twitter"
	"github.com/videocast/scheduler/internal/platformcore/adapters/youtube"
	"github.com/videocast/scheduler/internal/secretstore"
	"github.com/videocast/scheduler/internal/store"
	"github.com/videocast/scheduler/internal/tokens"
)

// WorkerApp holds every constructed collaborator for one process,
// mirroring the teacher's WorkerApp shape but carrying the beat/
// dispatcher pair instead of a JobProcessor slice.
type WorkerApp struct {
	DB         *gorm.DB
	Logger     applog.Logger
	Beat       *beat.Beat
	Dispatcher *dispatcher.Pool
	Deps       *app.Deps
}

func main() {
	log.Println("starting videocast scheduler worker")

	worker, err := NewWorkerApp()
	if err != nil {
		log.Fatalf("failed to initialize worker: %v", err)
	}
	defer worker.Cleanup()

	worker.Start()
}

// NewWorkerApp initializes every collaborator the worker needs.
func NewWorkerApp() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := applog.New()
	clk := clock.NewSystemClock()

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("connected to postgres")

	st := store.New(db)

	secrets, err := secretstore.New(cfg.Security.EncryptionKey, cfg.Security.EncryptionSalt)
	if err != nil {
		return nil, fmt.Errorf("secret store: %w", err)
	}

	objStore, err := fsstore.New(getEnvOr("OBJECT_STORE_LOCAL_DIR", "./data/objects"))
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	var os_ objectstore.Store = objStore

	registry, err := buildRegistry(cfg, objStore, clk)
	if err != nil {
		return nil, fmt.Errorf("platform registry: %w", err)
	}

	brk, err := buildBroker(cfg, clk)
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}
	logger.Info("broker ready", "queue", cfg.Broker.Queue)

	var appCreds tokens.AppCredentials
	if cfg.Twitter.APIKey != "" {
		appCreds.Twitter = &platformcore.Token{
			AccessToken: cfg.Twitter.AccessToken,
			TokenSecret: cfg.Twitter.AccessTokenSecret,
		}
	}
	tokenMgr := tokens.New(st.Connections(), secrets, registry, clk, logger, appCreds)
	gov := governor.New(st.Posts())

	b := beat.New(st, brk, clk, logger, cfg.Scheduler.Tick, cfg.Broker.Queue)
	d := dispatcher.New(st, brk, registry, gov, tokenMgr, os_, clk, logger, cfg.Broker.Queue,
		dispatcher.WithConcurrency(cfg.Dispatcher.Concurrency),
		dispatcher.WithPublishDeadline(cfg.Dispatcher.PublishDeadline),
	)

	redirectURIs := make(map[platformcore.Platform]string, len(cfg.Platforms))
	for p, pc := range cfg.Platforms {
		redirectURIs[p] = pc.RedirectURI
	}
	deps := &app.Deps{
		Store:        st,
		Broker:       brk,
		Registry:     registry,
		Secrets:      secrets,
		ObjectStore:  os_,
		Clock:        clk,
		Logger:       logger,
		Queue:        cfg.Broker.Queue,
		RedirectURIs: redirectURIs,
		StateSigner:  app.NewStateSigner(cfg.Security.StateSecret, clk),
	}

	return &WorkerApp{DB: db, Logger: logger, Beat: b, Dispatcher: d, Deps: deps}, nil
}

// Start runs the beat and dispatcher pool until SIGINT/SIGTERM.
func (w *WorkerApp) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := w.Beat.Run(ctx); err != nil && err != context.Canceled {
			w.Logger.Error("beat stopped", "error", err)
		}
	}()
	go w.Dispatcher.Run(ctx)

	w.Logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	w.Logger.Info("shutting down worker")
	cancel()

	_, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	w.Logger.Info("worker stopped gracefully")
}

// Cleanup closes the database connection.
func (w *WorkerApp) Cleanup() {
	if w.DB != nil {
		if sqlDB, err := w.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func buildRegistry(cfg *config.Config, objStore objectstore.Store, clk clock.Clock) (*platformcore.Registry, error) {
	tw := cfg.Platforms[platformcore.PlatformTwitter]
	twitterAppCred := twitter.AppCredential{
		APIKey:            cfg.Twitter.APIKey,
		APISecret:         cfg.Twitter.APISecret,
		AccessToken:       cfg.Twitter.AccessToken,
		AccessTokenSecret: cfg.Twitter.AccessTokenSecret,
	}
	yt := cfg.Platforms[platformcore.PlatformYouTube]
	ig := cfg.Platforms[platformcore.PlatformInstagram]
	fb := cfg.Platforms[platformcore.PlatformFacebook]
	tt := cfg.Platforms[platformcore.PlatformTikTok]

	return platformcore.NewRegistry(
		twitter.New(tw.ClientID, tw.ClientSecret, twitterAppCred, objStore, clk),
		youtube.New(yt.ClientID, yt.ClientSecret, objStore, clk),
		instagram.New(ig.ClientID, ig.ClientSecret, objStore, clk),
		facebook.New(fb.ClientID, fb.ClientSecret, objStore, clk),
		tiktok.New(tt.ClientID, tt.ClientSecret, &http.Client{Timeout: 60 * time.Second}, objStore, clk),
	)
}

func buildBroker(cfg *config.Config, clk clock.Clock) (broker.Broker, error) {
	if cfg.Broker.URL == "" {
		return memorybroker.New(clk), nil
	}
	return asynqbroker.New(asynq.RedisClientOpt{Addr: cfg.Broker.URL}), nil
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
