package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"docgrind/internal/bootstrap"
	"docgrind/internal/platform/clock"
	"docgrind/internal/platform/config"
)

type rootFlags struct {
	dataPath   string
	configFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "docgrind",
		Short:         "Reading progress tracker for HTML documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataPath, "data", ".", "data directory (holds .docgrind/docgrind.db)")
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default <data>/docgrind.yaml)")

	root.AddCommand(newScanCmd(flags))
	root.AddCommand(newSimulateCmd(flags))
	root.AddCommand(newProgressCmd(flags))
	root.AddCommand(newBookmarksCmd(flags))
	root.AddCommand(newStorageCmd(flags))
	return root
}

func loadApp(flags *rootFlags, opts ...bootstrap.Option) (*bootstrap.App, error) {
	cfg, err := config.Load(flags.dataPath, flags.configFile)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, opts...)
}

func newScanCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <file.html>",
		Short: "Show tracked elements and the reading estimate of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := context.Background()

			r, elements, err := app.Open(ctx, args[0])
			if err != nil {
				return err
			}
			status := r.CLI.Status()
			if err := r.CLI.Close(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderScan(r.Title, elements, status))
			return nil
		},
	}
}

func newSimulateCmd(flags *rootFlags) *cobra.Command {
	var steps int
	var stepTime time.Duration

	cmd := &cobra.Command{
		Use:   "simulate <file.html>",
		Short: "Read a document by scrolling forward on a simulated clock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			clk := clock.NewManual(time.Now())
			app, err := loadApp(flags, bootstrap.WithClock(clk, clk))
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := context.Background()

			r, _, err := app.Open(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := r.CLI.Start(); err != nil {
				return err
			}
			stride := app.Config.Tracker.ViewportHeight * 0.8
			for range steps {
				r.ScrollTo(min(r.ScrollTop()+stride, r.MaxScroll()))
				clk.Advance(stepTime)
			}
			session, err := r.CLI.Stop(ctx)
			if err != nil {
				return err
			}
			status := r.CLI.Status()
			if err := r.CLI.Close(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, renderSession(r.Title, session, status))
			if reports := app.Reports(); len(reports) > 0 {
				_, _ = fmt.Fprintln(out, renderReports(reports))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 10, "number of scroll steps")
	cmd.Flags().DurationVar(&stepTime, "step-time", 30*time.Second, "simulated time spent on each step")
	return cmd
}

func newProgressCmd(flags *rootFlags) *cobra.Command {
	progress := &cobra.Command{Use: "progress", Short: "Stored reading progress"}

	var documentID string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show progress of one document, or of all documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := context.Background()
			out := cmd.OutOrStdout()

			if documentID != "" {
				doc, err := app.StorageCLI.Document(ctx, documentID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, renderDocument(doc))
				return nil
			}
			docs, err := app.StorageCLI.Documents(ctx)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				_, _ = fmt.Fprintln(out, "no documents")
				return nil
			}
			for _, doc := range docs {
				_, _ = fmt.Fprintln(out, renderDocumentLine(doc))
			}
			return nil
		},
	}
	show.Flags().StringVar(&documentID, "doc", "", "document id")

	progress.AddCommand(show)
	return progress
}

func newBookmarksCmd(flags *rootFlags) *cobra.Command {
	bookmarks := &cobra.Command{Use: "bookmarks", Short: "Stored bookmarks"}

	var documentID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the bookmarks of a document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			items, err := app.StorageCLI.Bookmarks(context.Background(), documentID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				_, _ = fmt.Fprintln(out, "no bookmarks")
				return nil
			}
			for _, b := range items {
				_, _ = fmt.Fprintln(out, renderBookmark(b))
			}
			return nil
		},
	}
	list.Flags().StringVar(&documentID, "doc", "", "document id")
	_ = list.MarkFlagRequired("doc")

	bookmarks.AddCommand(list)
	return bookmarks
}

func newStorageCmd(flags *rootFlags) *cobra.Command {
	storage := &cobra.Command{Use: "storage", Short: "Inspect and move stored data"}

	storage.AddCommand(&cobra.Command{
		Use:   "usage",
		Short: "Show storage usage per document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer app.Close()
			usage, err := app.StorageCLI.Usage(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderUsage(usage))
			return nil
		},
	})

	var outFile string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export every stored document as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer app.Close()
			data, err := app.StorageCLI.Export(context.Background())
			if err != nil {
				return err
			}
			if outFile == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := os.WriteFile(outFile, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", outFile)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&outFile, "out", "", "write to file instead of stdout")

	importCmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import an export bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.StorageCLI.Import(context.Background(), data)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d keys\n", out.Written)
			return nil
		},
	}

	var documentID string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete one document, or everything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.StorageCLI.Clear(context.Background(), documentID); err != nil {
				return err
			}
			if documentID == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "cleared all documents")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", documentID)
			return nil
		},
	}
	clearCmd.Flags().StringVar(&documentID, "doc", "", "document id (default: all)")

	storage.AddCommand(exportCmd, importCmd, clearCmd)
	return storage
}
