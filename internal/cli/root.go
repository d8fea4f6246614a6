package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"corpusqa/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	log     *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "corpusqa",
	Short: "Corpus QA - semantic question answering over a text corpus",
	Long: `corpusqa indexes a plain-text corpus into a vector index, keeps the
index in sync with the corpus file, and answers natural-language
questions against it using retrieval-augmented generation.

Example usage:
  corpusqa reindex                        # Build or refresh the index
  corpusqa search -q "free beds"          # Retrieve matching passages
  corpusqa ask -q "How many beds are free in the Emergency Ward?"
  corpusqa serve                          # Run the HTTP API`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log = newLogger(cfg.Logging.Level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./corpusqa.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func newLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	return l
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
