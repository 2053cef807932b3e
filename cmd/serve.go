package cmd

import (
	"context"
	"fmt"

	"github.com/roomify/roomify_server/internal"
	"github.com/roomify/roomify_server/internal/health"
	"github.com/roomify/roomify_server/internal/middleware"
	"github.com/roomify/roomify_server/internal/project"
	"github.com/roomify/roomify_server/internal/status"
	"github.com/roomify/roomify_server/internal/storage"
	"github.com/roomify/roomify_server/internal/user"
	"github.com/roomify/roomify_server/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, overrides server.addr")
	serveCmd.Flags().String("log-level", "", "log level, overrides log.level")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("log.level", serveCmd.Flags().Lookup("log-level"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	config, err := internal.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := internal.InitLogger(config.Log); err != nil {
		return err
	}

	return serve(cmd.Context(), config)
}

func serve(ctx context.Context, config *internal.Config) error {
	db, err := internal.NewDB(config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	backend, err := storage.NewBackend(ctx, config.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	userService, err := user.NewUserService(config.Users)
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}

	projectService := project.NewProjectService(project.NewSQLRepository(db), backend, config.Projects)

	hub := websocket.NewHub()
	corsMiddleware := middleware.NewCORSMiddleware(config.Server.AllowedOrigins)
	allowOrigin := func(origin string) bool {
		return corsMiddleware.AllowsAnyOrigin() || corsMiddleware.AllowsOrigin(origin)
	}
	wsHandler, err := websocket.NewHandler(hub, userService, projectService, config.Sessions, allowOrigin)
	if err != nil {
		return err
	}

	requestHandler := internal.NewRequestHandler(
		corsMiddleware,
		userService,
		health.NewEndpoints(Version, db),
		status.NewEndpoints(Version, hub),
		project.NewProjectEndpoints(projectService),
		wsHandler,
	)

	server := &fasthttp.Server{
		Name:               "roomify",
		Handler:            requestHandler,
		MaxRequestBodySize: config.Server.MaxRequestBodySize,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().
			Str("addr", config.Server.Addr).
			Str("storage", string(config.Storage.Type)).
			Str("version", Version).
			Msg("Starting server")
		return server.ListenAndServe(config.Server.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()
		return server.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}
