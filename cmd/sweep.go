package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/villaops/dispatchd/app"
	"github.com/villaops/dispatchd/config"
	"github.com/villaops/dispatchd/infra/logger"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire due offers once and exit",
	RunE:  sweepOnce,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func sweepOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	logg := logger.New("sweep-command")
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	n, err := svc.Sweeper.SweepOnce(ctx)
	if err != nil {
		return err
	}
	logg.Infof("expired %d offers", n)
	return nil
}
