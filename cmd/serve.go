package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/nightplan/app"
	"github.com/kilianp07/nightplan/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the night plan up to date from file edits and MQTT commands",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	date, err := nightDate()
	if err != nil {
		return err
	}
	svc, err := app.New(ctx, cfg, date, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
