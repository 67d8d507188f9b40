package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var routesJSON bool

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the routes the site serves",
	RunE:  runRoutes,
}

func init() {
	routesCmd.Flags().BoolVar(&routesJSON, "json", false, "print JSON")
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, _ []string) error {
	ctx, a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.svc.Stop(ctx)

	routes := a.site.Routes()
	if routesJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(routes)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, route := range routes {
		if route.Handler == "asset" {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", route.Method, route.Path, route.Handler)
	}
	return tw.Flush()
}
