// Package main provides the fieldcapture operator CLI. It works on the same
// data directory as the desktop server and the mobile library.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kimhsiao/fieldcapture/backend/internal/app"
	"github.com/kimhsiao/fieldcapture/backend/internal/config"
	"github.com/kimhsiao/fieldcapture/backend/internal/models"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
	dataDir    string
}

func (o *options) open() (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	return app.New(cfg)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "fieldcapture",
		Short:         "Inspect and drain the offline capture queue",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "override the data directory")

	root.AddCommand(
		newVersionCmd(),
		newPendingCmd(opts),
		newSyncCmd(opts),
		newPurgeCmd(opts),
		newCheckCmd(opts),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fieldcapture v%s\n", Version)
		},
	}
}

func newPendingCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show what is waiting to be synced",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			count, err := a.Queue.CountUnsynced(ctx)
			if err != nil {
				return err
			}
			photos, err := a.Queue.ListUnsyncedPhotos(ctx)
			if err != nil {
				return err
			}
			var size uint64
			for _, p := range photos {
				size += uint64(len(p.Data))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "surveys: %d\n", count.Surveys)
			fmt.Fprintf(out, "photos:  %d (%s)\n", count.Photos, humanize.Bytes(size))
			if len(photos) > 0 {
				fmt.Fprintf(out, "oldest:  %s\n", humanize.Time(photos[0].CreatedAtTime()))
			}
			return nil
		},
	}
}

func newSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Capture.SyncAll(cmd.Context())
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			if !result.Success {
				return fmt.Errorf("%d item(s) failed", len(result.Errors))
			}
			return nil
		},
	}
}

func printResult(out io.Writer, r *models.SyncResult) {
	fmt.Fprintf(out, "surveys synced: %d\n", r.SurveysSynced)
	fmt.Fprintf(out, "photos synced:  %d\n", r.PhotosSynced)
	fmt.Fprintf(out, "purged:         %s\n", humanize.Comma(r.Purged))
	fmt.Fprintf(out, "took:           %s\n", r.Duration.Round(time.Millisecond))
	for _, e := range r.Errors {
		fmt.Fprintf(out, "  error: %s\n", e)
	}
}

func newPurgeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete rows that are already synced",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Queue.PurgeSynced(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s synced row(s)\n", humanize.Comma(n))
			return nil
		},
	}
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the photo bucket is reachable with the configured credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.TestConnection(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bucket %q reachable\n", a.Config.Storage.Bucket)
			return nil
		},
	}
}
