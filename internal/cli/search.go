package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		limit    int
		language string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), strings.Join(args, " "), limit, language)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().StringVarP(&language, "language", "l", "", "restrict results to one language, e.g. go")
	return cmd
}

func runSearch(ctx context.Context, query string, limit int, language string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	vectors, err := d.provider.Embed(ctx, []string{query})
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	var filter map[string]any
	if language != "" {
		filter = map[string]any{"language": language}
	}

	hits, err := d.store.Search(ctx, d.cfg.VectorStore.Collection, vectors[0], limit, filter)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("No results")
		return nil
	}

	for i, hit := range hits {
		name, _ := hit.Payload["name"].(string)
		if name == "" {
			name, _ = hit.Payload["chunk_type"].(string)
		}
		fmt.Printf("%2d. %.3f  %s:%v-%v  %s\n",
			i+1, hit.Score,
			hit.Payload["file_path"], hit.Payload["start_line"], hit.Payload["end_line"],
			name)
	}
	return nil
}
