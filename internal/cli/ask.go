package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askQuery string
	askConv  string
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question against the corpus",
	Long: `Retrieve context for the question and generate a natural-language
answer. Pass --conversation to continue an earlier exchange.

Examples:
  corpusqa ask -q "How many beds are free in the Emergency Ward?"
  corpusqa ask -q "And in the ICU?" --conversation 4f7c...`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question to answer (required)")
	askCmd.Flags().StringVar(&askConv, "conversation", "", "conversation ID to continue")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	retrieveUC, snapshots, err := newRetrieveUseCase(cfg)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	answerUC, conversations, err := newAnswerUseCase(cfg, retrieveUC)
	if err != nil {
		return err
	}
	if conversations != nil {
		defer conversations.Close()
	}

	answer, convID := answerUC.Answer(cmd.Context(), askQuery, askConv)

	if askJSON {
		out := struct {
			Status         string   `json:"status"`
			Response       string   `json:"response"`
			Context        []string `json:"context,omitempty"`
			ConversationID string   `json:"conversation_id,omitempty"`
		}{answer.Status, answer.Response, answer.Context, convID}
		encoded, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Println(answer.Response)
	if convID != "" {
		fmt.Printf("\n(conversation: %s)\n", convID)
	}
	return nil
}
