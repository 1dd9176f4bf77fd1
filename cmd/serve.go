package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/brainbrew/internal/account"
	"github.com/abhisek/brainbrew/internal/httpapi"
	"github.com/abhisek/brainbrew/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the library and study sessions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := telemetry.Setup(ctx, "brainbrew", buildVersion(), cfg.Telemetry, log.Named("otel"))
		if err != nil {
			return err
		}
		reg := telemetry.NewRegistry()

		d, err := bootstrap(ctx, bootOptions{LLM: true, Registry: reg})
		if err != nil {
			return err
		}
		defer d.Close()

		verifier, err := account.NewVerifier(cfg.Server.JWTSecret, cfg.Server.JWTIssuer, cfg.Server.TokenTTL)
		if err != nil {
			return err
		}

		srv := httpapi.New(httpapi.Deps{
			Content:   d.Content,
			Grader:    d.Grader,
			Library:   d.Library,
			Exchanges: d.Store.ExchangeRepo(),
			Verifier:  verifier,
			Registry:  reg,
			Logger:    log,
			Tutor:     cfg.Tutor.Options(),
			Ping:      d.Store.Ping,
		}, httpapi.Options{
			Addr:            cfg.Server.Addr,
			Service:         "brainbrew",
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			SessionTTL:      cfg.Server.SessionTTL,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Run(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				return fmt.Errorf("flush traces: %w", err)
			}
			return nil
		})
		return g.Wait()
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API access token for the configured user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		email, _ := cmd.Flags().GetString("email")
		v, err := account.NewVerifier(cfg.Server.JWTSecret, cfg.Server.JWTIssuer, cfg.Server.TokenTTL)
		if err != nil {
			return err
		}
		token, err := v.Issue(cfg.User, email)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	tokenCmd.Flags().String("email", "", "Email claim to embed in the token")
}
