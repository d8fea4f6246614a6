package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pattern>...",
	Short: "Append documents to the corpus file",
	Long: `Collect text documents matching the glob patterns and append their
contents to the corpus file, separated by blank lines. Only .txt and
.md files are ingested. The index is rebuilt on the next search or
reindex because the corpus fingerprint changes.

Examples:
  corpusqa ingest docs/*.txt
  corpusqa ingest "notes/**/*.md"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	var paths []string
	seen := make(map[string]struct{})
	for _, pattern := range args {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(GetRootDir(), pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			ext := strings.ToLower(filepath.Ext(m))
			if ext != ".txt" && ext != ".md" {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}

	if len(paths) == 0 {
		return fmt.Errorf("no .txt or .md files matched")
	}
	sort.Strings(paths)

	corpusPath := resolvePath(cfg.Corpus.Path)
	out, err := os.OpenFile(corpusPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer out.Close()

	ingested := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Warning: skipping %s: %v\n", path, err)
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		if _, err := out.WriteString("\n\n" + text + "\n"); err != nil {
			return fmt.Errorf("failed to write corpus file: %w", err)
		}
		ingested++
		fmt.Printf("Ingested %s\n", path)
	}

	fmt.Printf("\n%d document(s) appended to %s\n", ingested, corpusPath)
	fmt.Println("Run 'corpusqa reindex' to rebuild the index.")
	return nil
}
