package cli

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Build or refresh the corpus index",
	Long: `Chunk the corpus file, embed every chunk, and persist the resulting
vector index together with its chunk cache. When the corpus has not
changed since the last build, this is a no-op.

Examples:
  corpusqa reindex
  corpusqa reindex --config ./corpusqa.yaml`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	uc, snapshots, err := newRetrieveUseCase(GetConfig())
	if err != nil {
		return err
	}
	defer snapshots.Close()

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex

	uc.SetProgress(func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	})

	if err := uc.EnsureFresh(cmd.Context()); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Printf("Index ready: %d chunks\n", uc.ChunkCount())
	return nil
}
