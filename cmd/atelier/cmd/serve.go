package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site over HTTP",
	Long: `Serve the site over HTTP until interrupted.

The address defaults to HTTP_PORT. Health is reported on /healthz.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: HTTP_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}

	err = a.svc.Run(ctx, serveAddr)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
