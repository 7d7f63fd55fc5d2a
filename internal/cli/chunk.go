package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"raggy/internal/chunker"
	"raggy/internal/pdf"
	"raggy/internal/scanner"
)

func chunkCmd(newApp AppFactory) *cobra.Command {
	var (
		chars  bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Preview how a file is split into chunks",
		Long: `Prints the sentence windows a file would be ingested as. With --chars the
character splitter is used instead, sized by CHUNK_CHARS and CHUNK_OVERLAP.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(newApp, func(cmd *cobra.Command, args []string, app *App) error {
			path := args[0]
			text, err := readText(app.Fs, path)
			if err != nil {
				return err
			}

			var chunks []chunker.Chunk
			if chars {
				for _, s := range chunker.SplitText(text, app.Config.ChunkChars, app.Config.ChunkOverlap) {
					chunks = append(chunks, chunker.Chunk{Text: s})
				}
			} else {
				opts := chunkOptions(app.Config)
				switch {
				case scanner.IsPDFPath(path):
					chunks = chunker.ChunkPDF(text, opts)
				case scanner.IsMarkdownPath(path):
					chunks = chunker.ChunkMarkdown(text, opts)
				default:
					chunks = chunker.ChunkPlain(text, opts)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if chunks == nil {
					chunks = []chunker.Chunk{}
				}
				return printJSON(out, chunks)
			}
			for i, c := range chunks {
				var meta []string
				if c.Heading != "" {
					meta = append(meta, strings.Join(c.SectionPath, " > "))
				}
				if c.Page > 0 {
					meta = append(meta, fmt.Sprintf("page %d", c.Page))
				}
				fmt.Fprintf(out, "--- chunk %d (%d chars) %s\n%s\n", i, len([]rune(c.Text)), strings.Join(meta, ", "), c.Text)
			}
			fmt.Fprintf(out, "%d chunk(s)\n", len(chunks))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&chars, "chars", false, "use the character splitter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output chunks as JSON")
	return cmd
}

func readText(fsys afero.Fs, path string) (string, error) {
	if scanner.IsPDFPath(path) {
		text, err := pdf.ExtractFile(fsys, path)
		if err != nil {
			return "", fmt.Errorf("failed to extract %s: %w", path, err)
		}
		return text, nil
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
