package service

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forumhub/app/auth"
	"forumhub/app/config"
	"forumhub/app/events"
	"forumhub/app/routes"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
	hubBuffer       = 64
)

func newServeCmd(load configLoader) *cobra.Command {
	var addr, staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the forum server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if staticDir != "" {
				cfg.StaticDir = staticDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return RunServer(ctx, cfg, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "directory holding the built web client")
	return cmd
}

// RunServer serves the forum until ctx is cancelled and then shuts down
// gracefully. When ready is non-nil it receives the listening address.
func RunServer(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[store] close failed: %v", err)
		}
	}()

	blobs, media, err := newBlobStore(cfg)
	if err != nil {
		return err
	}
	notifier, err := newNotifier(ctx, cfg, store.Devices)
	if err != nil {
		return err
	}

	hub := events.NewHub(hubBuffer)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, store.Sessions)
	deps := routes.NewDeps(store, tokens, hub, blobs, notifier, cfg.MaxAvatarBytes)
	deps.Media = media
	deps.StaticDir = cfg.StaticDir

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cfg.Addr)
	}
	srv := &http.Server{
		Handler:           routes.SetupRoutes(deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Printf("[http] forum listening on %s", ln.Addr())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		hub.Close()
		deps.Replies.Wait()
		return errors.Wrap(err, "server error")
	case <-ctx.Done():
	}

	log.Println("[http] shutting down")
	// Streams only end when the hub closes
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[http] graceful shutdown failed: %v", err)
	}
	deps.Replies.Wait()
	log.Println("[http] server stopped")
	return nil
}
