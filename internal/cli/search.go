package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"raggy/internal/service"
)

// snippetRunes caps the text shown per result.
const snippetRunes = 240

func searchCmd(newApp AppFactory) *cobra.Command {
	var (
		k        int
		minScore float64
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search ingested documents",
		Long: `Embeds the query and returns the most similar chunks, at most one per
pair of neighbouring chunks of a document.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(newApp, func(cmd *cobra.Command, args []string, app *App) error {
			if k < 1 {
				return fmt.Errorf("-k must be a positive integer, got %d", k)
			}
			req := service.SearchRequest{Query: args[0], K: k}
			if cmd.Flags().Changed("min-score") {
				req.MinScore = &minScore
			}
			resp, err := app.Service.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, resp)
			}
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			for i, r := range resp.Results {
				loc := fmt.Sprintf("%s#%d", r.Path, r.ChunkIndex)
				if r.Page > 0 {
					loc += fmt.Sprintf(" p.%d", r.Page)
				}
				if r.Heading != "" {
					loc += " · " + r.Heading
				}
				fmt.Fprintf(out, "[%d] %.3f  %s\n", i+1, r.Score, loc)
				fmt.Fprintf(out, "    %s\n", snippet(r.Text, snippetRunes))
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&k, "k", "k", service.DefaultK, "maximum number of results")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "drop results scoring below this (default $SEARCH_MIN_SCORE)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "…"
}
