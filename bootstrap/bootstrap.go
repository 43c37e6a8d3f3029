package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fulldump/box"

	"github.com/fulldump/hashdb/api"
	"github.com/fulldump/hashdb/configuration"
	"github.com/fulldump/hashdb/database"
	"github.com/fulldump/hashdb/service"
	"github.com/fulldump/hashdb/storage"
)

var VERSION = "dev"

// NewLogger builds the process logger, text or JSON, at the given level.
func NewLogger(w io.Writer, level string, json bool) (*slog.Logger, error) {

	l := slog.LevelInfo
	if level != "" {
		err := l.UnmarshalText([]byte(strings.ToUpper(level)))
		if err != nil {
			return nil, fmt.Errorf("log level '%s': %w", level, err)
		}
	}

	options := &slog.HandlerOptions{Level: l}
	if json {
		return slog.New(slog.NewJSONHandler(w, options)), nil
	}
	return slog.New(slog.NewTextHandler(w, options)), nil
}

// NewCatalog prepares the catalog described by c without loading it.
func NewCatalog(c *configuration.Configuration, logger *slog.Logger) (*database.Catalog, error) {

	codec, err := storage.ByName(c.Format)
	if err != nil {
		return nil, err
	}

	return database.New(&database.Config{
		Dir:        c.Dir,
		Codec:      codec,
		Buckets:    c.Buckets,
		IndexOrder: c.IndexOrder,
		BackupDir:  c.BackupDir,
		Logger:     logger,
	}), nil
}

// NewApi builds the http api over catalog. Errors are rendered by the
// outermost interceptors so the ones set while the catalog is not operating
// reach the client too.
func NewApi(c *configuration.Configuration, catalog *database.Catalog, logger *slog.Logger) *box.B {

	b := api.Build(service.NewService(catalog), VERSION, c.ApiKey, c.ApiSecret)
	if c.EnableCompression {
		b.WithInterceptors(api.Compression)
	}
	b.WithInterceptors(
		api.AccessLog(slog.NewLogLogger(logger.With("component", "access").Handler(), slog.LevelInfo)),
		api.PrettyErrorInterceptor,
		api.RecoverFromPanic,
		api.InterceptorUnavailable(catalog),
	)

	return b
}

// Bootstrap wires the catalog and the http api. start blocks until stop is
// called or the process receives SIGINT or SIGTERM; stop runs the transaction
// shutdown hook before closing the server.
func Bootstrap(c *configuration.Configuration) (start, stop func(), err error) {

	logger, err := NewLogger(os.Stdout, c.LogLevel, c.LogJson)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	catalog, err := NewCatalog(c, logger)
	if err != nil {
		return nil, nil, err
	}

	s := &http.Server{
		Addr:    c.HttpAddr,
		Handler: box.Box2Http(NewApi(c, catalog, logger)),
	}

	ln, err := net.Listen("tcp", c.HttpAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen '%s': %w", c.HttpAddr, err)
	}
	logger.Info("listening", "addr", ln.Addr().String())

	stopOnce := sync.Once{}
	stop = func() {
		stopOnce.Do(func() {
			err := catalog.Stop()
			if err != nil {
				logger.Error("stop catalog", "error", err)
			}
			s.Shutdown(context.Background())
		})
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		for sig := range signalChan {
			logger.Info("signal received", "signal", sig.String())
			stop()
		}
	}()

	start = func() {

		wg := &sync.WaitGroup{}

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := catalog.Start()
			if err != nil {
				logger.Error("start catalog", "error", err)
				stop()
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Serve(ln)
			if err != nil && err != http.ErrServerClosed {
				logger.Error("serve", "error", err)
			}
		}()

		wg.Wait()
	}

	return start, stop, nil
}
