// Package main is the MediStore storefront command line client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/pkg/config"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
	appName = "storefront"
)

func main() {
	c := &cli{}
	err := rootCmd(c).Execute()
	c.teardown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries the wired app from PersistentPreRunE to the subcommands
type cli struct {
	envFile string
	verbose bool
	app     *app
	ctx     context.Context
	stop    context.CancelFunc
}

func rootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "MediStore online pharmacy client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			return c.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&c.envFile, "env", "", "Path to an env file (defaults to ./.env)")
	cmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log at debug level")

	cmd.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.doctorCmd(),
		c.shopCmd(),
		c.productCmd(),
		c.cartCmd(),
		c.checkoutCmd(),
		c.ordersCmd(),
		c.adminCmd(),
		c.sellerCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

func (c *cli) setup() error {
	var cfg *config.Config
	var err error
	if c.envFile != "" {
		cfg, err = config.LoadWithPath(c.envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := "warn"
	if c.verbose || cfg.App.Debug {
		level = "debug"
	}
	if err := logger.Init(&logger.Config{Level: level, ServiceName: cfg.App.Name, Development: cfg.IsDevelopment()}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	c.ctx, c.stop = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c.app, err = newApp(c.ctx, cfg)
	if err != nil {
		c.stop()
		return err
	}
	return nil
}

func (c *cli) teardown() {
	if c.app != nil {
		c.app.Close()
	}
	if c.stop != nil {
		c.stop()
	}
	logger.Sync()
}

// navigate prints where the page would go next, honouring its delay
func (c *cli) navigate(nav routing.Navigation) {
	if nav.IsZero() {
		return
	}
	if nav.After > 0 {
		select {
		case <-time.After(nav.After):
		case <-c.ctx.Done():
			return
		}
	}
	fmt.Printf("→ %s\n", nav.Route)
}
