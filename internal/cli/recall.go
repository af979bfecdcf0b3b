package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newRecallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recall QUERY",
		Short: "Recall memories relevant to a query",
		Long:  `Recall the most relevant memories from both tiers, ranked by blended semantic and affective similarity. Returned memories are boosted.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runRecall,
	}
}

func runRecall(cmd *cobra.Command, args []string) error {
	c := client.New(getServerURL())
	resp, err := c.Recall(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("recall: %w", err)
	}

	printRecallResults(resp)
	return nil
}
