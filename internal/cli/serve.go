package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ByLCY/quire/container"
	"github.com/ByLCY/quire/internal/config"
	"github.com/ByLCY/quire/layout"
	canvasrenderer "github.com/ByLCY/quire/renderer/canvas"
	"github.com/ByLCY/quire/server"
	"github.com/ByLCY/quire/store"
	"github.com/ByLCY/quire/store/redisstore"
	"github.com/ByLCY/quire/store/s3store"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP render server",
		Long:  `Starts quire in server mode: POST /render, POST /render/string, GET /render/stream, GET /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger := a.log()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// One renderer for all requests so fonts and decoded images are cached across them.
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		BaseDir:        a.cfg.BaseDir,
		ImageCacheSize: a.cfg.Images.CacheSize,
		Logger:         logger,
	})
	opts := []server.Option{
		server.WithLogger(logger),
		server.WithRegistry(reg),
		server.WithContainerOptions(
			container.WithEncoder(r),
			container.WithLayouter(layout.NewEngine(r, layout.WithBaseDir(a.cfg.BaseDir), layout.WithLogger(logger))),
		),
	}
	objects, err := newObjectStore(a.cfg.Store)
	if err != nil {
		return err
	}
	if objects != nil {
		opts = append(opts, server.WithSink(store.Factory(objects, a.cfg.Store.Prefix)))
	}

	srv := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: server.New(opts...).Handler(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting quire server", "addr", srv.Addr, "store", a.cfg.Store.Kind)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown did not complete", "timeout", a.cfg.Server.ShutdownTimeout, "err", err)
		return srv.Close()
	}
	logger.Info("quire server stopped")
	return nil
}

// newObjectStore returns nil when rendered documents are not persisted.
func newObjectStore(cfg config.StoreConfig) (store.ObjectStore, error) {
	switch cfg.Kind {
	case "", config.StoreNone:
		return nil, nil
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreRedis:
		return redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisstore.WithTTL(cfg.TTL)), nil
	case config.StoreS3:
		opts := s3.Options{
			Region:      cfg.S3.Region,
			Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
		}
		if cfg.S3.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			opts.UsePathStyle = true
		}
		return s3store.New(s3.New(opts), cfg.S3.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

func envCredentials(context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}
