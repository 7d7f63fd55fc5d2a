package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"raggy/internal/indexer"
	"raggy/internal/service"
)

func ingestCmd(newApp AppFactory) *cobra.Command {
	var (
		asJSON bool
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <path|glob>...",
		Short: "Ingest files, directories or glob patterns",
		Long: `Ingests every text, Markdown and PDF file below the given paths.
Files whose content is already in the store are skipped. With --watch the
ingest is repeated after the watched paths change.`,
		Args: cobra.MinimumNArgs(1),
		RunE: withApp(newApp, func(cmd *cobra.Command, args []string, app *App) error {
			out := cmd.OutOrStdout()
			run := func() error {
				report, err := app.Service.Ingest(cmd.Context(), service.IngestRequest{Paths: args})
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(out, report)
				}
				printReport(out, report)
				return nil
			}
			if err := run(); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchPaths(cmd.Context(), args, watchDebounce, run)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-ingest when the paths change")
	return cmd
}

func reingestCmd(newApp AppFactory) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "reingest",
		Short: "Reset the store and ingest every registered path again",
		Args:  cobra.NoArgs,
		RunE: withApp(newApp, func(cmd *cobra.Command, _ []string, app *App) error {
			report, err := app.Service.Reingest(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(w io.Writer, r indexer.Report) {
	fmt.Fprintf(w, "Added %d doc(s), %s chunk(s).\n", r.Added, humanize.Comma(int64(r.Chunks)))
	fmt.Fprintf(w, "  paths:     %d requested, %d valid\n", r.RequestedPaths, r.ValidPaths)
	fmt.Fprintf(w, "  files:     %d processed\n", r.ProcessedFiles)

	skips := []struct {
		label string
		n     int
	}{
		{"non-text files", r.SkippedNonTextFiles},
		{"unreadable files", r.SkippedUnreadableFiles},
		{"files without chunks", r.SkippedZeroChunkFiles},
		{"files without embeddings", r.SkippedFilesNoEmbeddings},
		{"chunks without embeddings", r.SkippedEmptyEmbeddingChunks},
		{"duplicate chunks", r.SkippedDuplicateChunks},
	}
	for _, s := range skips {
		if s.n > 0 {
			fmt.Fprintf(w, "  skipped:   %d %s\n", s.n, s.label)
		}
	}
	if len(r.InvalidPaths) > 0 {
		fmt.Fprintf(w, "  not found: %s\n", strings.Join(r.InvalidPaths, ", "))
	}
}
