package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/ledger"
	"github.com/ora-civic/ora/internal/rest"
	"github.com/ora-civic/ora/internal/rest/middleware/auth"
	"github.com/ora-civic/ora/internal/service"
	"github.com/ora-civic/ora/internal/setup"
	"github.com/ora-civic/ora/internal/setup/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// RESTLogDir specifies where REST server log files are stored.
const RESTLogDir = "logs/rest_logs"

// Server timeouts. There is no write timeout because tally streams stay open.
const (
	ReadTimeout     = 5 * time.Second
	IdleTimeout     = 2 * time.Minute
	ShutdownTimeout = 30 * time.Second
)

var ErrSubjectRequired = errors.New("SUBJECT argument required")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "rest",
		Usage: "ORA REST API",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the REST server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "memory",
						Usage: "Keep all state in process instead of PostgreSQL and Redis",
					},
					&cli.BoolFlag{
						Name:  "migrate",
						Usage: "Apply pending database migrations on startup",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return serve(ctx, setup.Options{
						Memory:      c.Bool("memory"),
						AutoMigrate: c.Bool("migrate"),
					})
				},
			},
			{
				Name:      "token",
				Usage:     "Issue an access token for local testing",
				ArgsUsage: "SUBJECT",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name carried by the token",
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Value: 24 * time.Hour,
						Usage: "Token lifetime",
					},
				},
				Action: func(_ context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return ErrSubjectRequired
					}

					cfg, _, err := config.LoadConfig()
					if err != nil {
						return err
					}

					token, err := auth.Issue(&cfg.API.Auth, c.Args().First(), c.String("name"), c.Duration("ttl"))
					if err != nil {
						return err
					}

					fmt.Println(token)
					return nil
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func serve(ctx context.Context, opts setup.Options) error {
	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, RESTLogDir, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	handler, comments, err := newServer(app)
	if err != nil {
		app.Logger.Error("Failed to create REST server", zap.Error(err))
		return err
	}
	defer comments.Close()
	defer handler.Close()

	addr := fmt.Sprintf("%s:%d", app.Config.API.Server.Host, app.Config.API.Server.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: ReadTimeout,
		IdleTimeout:       IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		app.Logger.Info("REST server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	app.Logger.Info("Shutting down REST server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	app.Logger.Info("Server gracefully stopped")
	return nil
}

// newServer wires the services onto the application's stores and model.
func newServer(app *setup.App) (*rest.Server, *service.CommentService, error) {
	cfg := app.Config
	logger := app.Logger
	flows := ai.NewFlows(app.Model, logger)

	comments := service.NewCommentService(
		app.Stores.Posts, app.Stores.Comments, flows,
		time.Duration(cfg.Comments.SummaryTimeout)*time.Second, logger,
	)

	server, err := rest.NewServer(rest.Dependencies{
		Posts:    service.NewPostService(app.Stores.Posts, app.Stores.Votes, flows, logger),
		Feed:     service.NewFeedService(app.Stores.Posts, flows, app.Cache, logger),
		Comments: comments,
		Reasons:  service.NewReasonService(app.Stores.Posts, app.Stores.Reasons, flows, logger),
		Insights: service.NewInsightService(app.Stores.Posts, flows, logger),
		Ledger:   ledger.New(app.Stores.Ledger, app.Broker, logger),
		Broker:   app.Broker,
	}, &cfg.API, logger)
	if err != nil {
		comments.Close()
		return nil, nil, err
	}

	return server, comments, nil
}
