package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"corpusqa/internal/domain"
)

var (
	searchQuery string
	searchTopK  int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Retrieve corpus passages matching a query",
	Long: `Search the corpus index for the passages closest to the query. The
index is refreshed first if the corpus changed.

Examples:
  corpusqa search -q "free beds in the emergency ward"
  corpusqa search -q "cafeteria opening hours" --top-k 3 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	uc, snapshots, err := newRetrieveUseCase(cfg)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	topK := cfg.Retrieve.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	results, err := uc.Search(cmd.Context(), searchQuery, topK, cfg.Retrieve.RelevanceThreshold)
	if err != nil {
		if errors.Is(err, domain.ErrNoRelevantContext) {
			fmt.Println("No relevant passages found.")
			return nil
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d passages for: %s\n\n", len(results), searchQuery)
	for i, r := range results {
		fmt.Printf("--- [%d] ---\n%s\n\n", i+1, r)
	}
	return nil
}
