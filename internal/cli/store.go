package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"raggy/internal/handlers"
)

func resetCmd(newApp AppFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every document and chunk from the store",
		Args:  cobra.NoArgs,
		RunE: withApp(newApp, func(cmd *cobra.Command, _ []string, app *App) error {
			if err := app.Service.ResetStore(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Store reset.")
			return nil
		}),
	}
}

func documentsCmd(newApp AppFactory) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List registered documents",
		Args:  cobra.NoArgs,
		RunE: withApp(newApp, func(cmd *cobra.Command, _ []string, app *App) error {
			docs, err := app.Service.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, docs)
			}
			if len(docs) == 0 {
				fmt.Fprintln(out, "No documents.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tCHUNKS\tSIZE\tADDED\tID")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
					d.Path, d.Chunks, humanize.Bytes(uint64(max(0, d.Size))), humanize.Time(d.AddedAt), shortID(d.ID))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func statsCmd(newApp AppFactory) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		RunE: withApp(newApp, func(cmd *cobra.Command, _ []string, app *App) error {
			st, err := app.Service.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, st)
			}
			dim := "unknown"
			if st.EmbeddingDim != nil {
				dim = fmt.Sprint(*st.EmbeddingDim)
			}
			fmt.Fprintf(out, "Documents:  %s\n", humanize.Comma(int64(st.Documents)))
			fmt.Fprintf(out, "Chunks:     %s\n", humanize.Comma(int64(st.Chunks)))
			fmt.Fprintf(out, "Embeddings: %s/%s, dim %s\n", st.Provider, st.Model, dim)
			if st.Chunks > 0 {
				ct := st.ChunkTokens
				fmt.Fprintf(out, "Tokens per chunk: min %d, mean %.1f, p95 %d, max %d\n", ct.Min, ct.Mean, ct.P95, ct.Max)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func historyCmd(newApp AppFactory) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent ingest runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(newApp, func(cmd *cobra.Command, args []string, app *App) error {
			if len(args) == 1 {
				run, err := app.Service.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), run)
			}
			runs, err := app.Service.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No ingest runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tKIND\tSTATUS\tADDED\tCHUNKS\tMESSAGE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					humanize.Time(r.StartedAt), r.Kind, r.Status, r.Added, r.Chunks, r.Message)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", handlers.DefaultHistoryLimit, "number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func probeCmd(newApp AppFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check connectivity with the embedding backend",
		Args:  cobra.NoArgs,
		RunE: withApp(newApp, func(cmd *cobra.Command, _ []string, app *App) error {
			res, err := app.Service.ProbeEmbeddings(cmd.Context())
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
			if err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("embedding backend at %s answered %d", res.BaseURL, res.Status)
			}
			return nil
		}),
	}
}

func indexCmd(newApp AppFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the flat vector index",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Build the flat index from the chunk ledger",
		Args:  cobra.NoArgs,
		RunE: withApp(newApp, func(cmd *cobra.Command, _ []string, app *App) error {
			meta, err := app.Service.BuildIndex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s vectors of dimension %d.\n", humanize.Comma(int64(meta.Count)), meta.Dim)
			return nil
		}),
	})
	return cmd
}

func shortID(id string) string {
	if len(id) > 10 {
		return id[:10]
	}
	return id
}
