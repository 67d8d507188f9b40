// Package cmd holds the atelier command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/renovo-atelier/atelier/version"
)

var translationsDir string

var rootCmd = &cobra.Command{
	Use:   "atelier",
	Short: "Renovo Atelier site",
	Long: `atelier serves the localized Renovo Atelier site and exports it
as static files.

Configuration is read from the environment, see config.ConfigurationDefault.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command named on the command line.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the command line with ctx as the parent context.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&translationsDir, "translations", "", "directory with <locale>.toml catalogs (default: compiled in)")
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "atelier: %v\n", err)
}
