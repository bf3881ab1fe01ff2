package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/diagramify/diagramify/internal/auth"
	"github.com/diagramify/diagramify/internal/editor"
	"github.com/diagramify/diagramify/internal/server"
)

// janitorInterval is how often expired sessions are swept.
const janitorInterval = 10 * time.Minute

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the diagram editor web server",
	Long:  `Starts the diagramify web server with Google sign-in, the live markdown diagram editor and the diagram generation API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := slog.Default()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gen := newGenerator(cfg, logger)

		sessions := auth.NewStore(cfg.Auth.SessionTTL)
		go sessions.RunJanitor(ctx, janitorInterval)

		authOpts := auth.Options{
			ClientID:     cfg.Auth.GoogleClientID,
			CookieSecure: cfg.Server.CookieSecure,
			Logger:       logger.With("component", "auth"),
		}
		if cfg.Auth.GoogleClientID != "" {
			authOpts.Verifier = auth.NewGoogleVerifier(cfg.Auth.GoogleClientID)
		}
		if cfg.Auth.SignInEnabled() {
			authOpts.OAuth = auth.NewGoogleOAuthConfig(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, cfg.Auth.RedirectURL)
		}
		if authOpts.Verifier == nil {
			logger.Warn("Google sign-in is not configured; set GOOGLE_CLIENT_ID to enable the editor")
		}

		manager := editor.NewManager(gen, newEngine(cfg), logger.With("component", "editor"))
		sessions.OnEvict(manager.Remove)

		port := cfg.Server.Port
		if serverPort > 0 {
			port = serverPort
		}

		srv := server.New(server.Config{
			Port:     port,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, server.Deps{
			Generator: gen,
			Sessions:  sessions,
			Auth:      auth.NewHandler(sessions, authOpts),
			Editor:    editor.NewHandler(manager, logger.With("component", "editor")),
			Logger:    logger,
		})

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown failed", "error", err)
			}
		}()

		fmt.Fprintf(os.Stderr, "diagramify server %s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Provider: %s (%s)\n", cfg.Provider, cfg.Model)
		fmt.Fprintf(os.Stderr, "  Renderer: %s\n", cfg.Render.Engine)

		return srv.Start()
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
