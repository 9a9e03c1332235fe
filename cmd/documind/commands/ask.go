package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ronak8180/DocuMind/internal/answer"
	"github.com/ronak8180/DocuMind/internal/logging"
	"github.com/ronak8180/DocuMind/internal/provider"
)

// NewAskCmd constructs the `documind ask` command, which asks a single
// question against a session's indexed documents and prints the answer.
func NewAskCmd() *cobra.Command {
	var sessionID string
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about a session's documents",
		Long: `Ask a natural language question against the documents indexed in a session.

The answer is grounded in the session's indexed documents and cites the
files it drew from. Index documents first with 'documind ingest' or via
the HTTP upload API.

Examples:
  documind ask "what were the Q3 revenue figures?"
  documind ask --session quarterly-review "summarise the key risks"
  documind ask --sources "who signed the contract?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			manager, _, err := buildIndexManager(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = manager.Close() }()

			answerer, err := answer.New(chatModel, manager, nil)
			if err != nil {
				return fmt.Errorf("ask: failed to create answerer: %w", err)
			}

			result := answerer.Answer(ctx, sessionID, args[0], nil)

			fmt.Fprintln(cmd.OutOrStdout(), result.Answer)

			if showSources && len(result.Sources) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "Sources:")
				for _, src := range result.Sources {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", src.Name, src.Content)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session to ask against (default: the shared global session)")
	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the source snippets the answer drew from")

	return cmd
}
