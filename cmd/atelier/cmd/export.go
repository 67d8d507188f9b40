package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/renovo-atelier/atelier/export"
	"github.com/renovo-atelier/atelier/site"
)

var (
	exportBucket      string
	exportConcurrency int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render every locale page into a bucket",
	Long: `Render the home and basket pages of every locale, a not-found page
and the site assets into a blob bucket, ready for static hosting.

Buckets are gocloud URLs, e.g. file:///var/www/atelier or mem://.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportBucket, "bucket", "", "bucket URL (default: EXPORT_BUCKET_URL)")
	exportCmd.Flags().IntVar(&exportConcurrency, "concurrency", 0, "files rendered at once (default: EXPORT_CONCURRENCY)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx, a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.svc.Stop(ctx)

	bucketURL := exportBucket
	if bucketURL == "" {
		bucketURL = a.cfg.GetExportBucketURL()
	}
	concurrency := exportConcurrency
	if concurrency <= 0 {
		concurrency = a.cfg.GetExportConcurrency()
	}

	bucket, err := export.OpenBucket(ctx, bucketURL)
	if err != nil {
		return err
	}
	defer func() { _ = bucket.Close() }()

	written, err := export.New(export.Options{
		Handler:     a.site.Handler(),
		Routing:     a.site.Routing(),
		Assets:      site.Assets(),
		Concurrency: concurrency,
	}).Export(ctx, bucket)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d files to %s\n", len(written), bucketURL)
	return err
}
