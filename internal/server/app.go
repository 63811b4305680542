// Package server wires configuration, storage, the blob backend and the
// transports into a runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jensmemes/memeserver/internal/dbx"
	"github.com/jensmemes/memeserver/internal/logging"
	"github.com/jensmemes/memeserver/internal/netx"
	"github.com/jensmemes/memeserver/internal/server/blobstore"
	"github.com/jensmemes/memeserver/internal/server/config"
	"github.com/jensmemes/memeserver/internal/server/notify"
	"github.com/jensmemes/memeserver/internal/server/repositories/repomanager"
	"github.com/jensmemes/memeserver/internal/server/rest"
	"github.com/jensmemes/memeserver/internal/server/services"
	"github.com/jensmemes/memeserver/internal/server/telemetry"

	gs "github.com/jensmemes/memeserver/internal/server/grpc"
)

const serviceName = "memeserver"

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *rest.Server
	health *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}

	db, err := dbx.Open(ctx, repomanager.DriverName, c.DatabaseDSN, dbx.DefaultPoolOptions)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := newBlobStore(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	memes := services.NewMemeService(db, rm)
	uploads := services.NewUploadService(memes, store, newNotifier(c), logger, services.UploadOptions{
		CDNURL:           c.CDNURL,
		DailyUploadLimit: c.DailyUploadLimit,
		PinTimeout:       c.PinTimeout,
		NotifyTimeout:    c.RequestTimeout,
	})
	cdn := services.NewCDNService(memes, store)

	gin.SetMode(gin.ReleaseMode)
	h := rest.NewHandler(memes, uploads, cdn, logger, c.CDNURL, c.MaxUploadSize)
	router, err := rest.NewRouter(h, rest.RouterOptions{ServiceName: serviceName, TrustedProxies: c.TrustedProxies})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("router init error: %w", err)
	}

	app := &App{
		config: c,
		logger: logger,
		db:     db,
		http:   rest.NewServer(c.EndpointAddrHTTP, router, logger),
	}
	if c.EndpointAddrGRPC != "" {
		app.health = gs.NewHealthServer(c.EndpointAddrGRPC, logger, db, gs.DefaultCheckInterval)
	}

	return app, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.BlobBackend {
	case config.BlobBackendS3:
		return blobstore.NewS3Store(ctx, blobstore.S3Options{
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
			Bucket:   c.S3Bucket,
			Region:   c.S3Region,
			Endpoint: c.S3BaseEndpoint,
		})
	case config.BlobBackendIPFS:
		return blobstore.NewIPFSStore(c.IPFSAPIURL, netx.NewClient(c.RequestTimeout), c.PinTimeout), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

func newNotifier(c *config.Config) notify.Notifier {
	if !c.MatrixEnabled() {
		return notify.NopNotifier{}
	}
	return notify.NewMatrixNotifier(c.MatrixURL, c.MatrixToken, c.MatrixDomain, c.MatrixRoomAlias(), netx.NewClient(c.RequestTimeout))
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// serve runs one transport; a failure stops the whole app.
func (app *App) serve(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	shutdownTracing, err := telemetry.Setup(ctx, app.config.OTLPEndpoint, serviceName)
	if err != nil {
		app.logger.Warn(ctx, "tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.serve(ctx, cancelFunc, "http", app.http.Run)
	}()

	if app.health != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.serve(ctx, cancelFunc, "grpc", app.health.Run)
		}()
	}

	wg.Wait()

	if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
		app.logger.Warn(ctx, "tracer shutdown", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
