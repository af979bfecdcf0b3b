package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newDecayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decay",
		Short: "Apply time decay to both tiers now",
		RunE:  runDecay,
	}
}

func runDecay(cmd *cobra.Command, args []string) error {
	c := client.New(getServerURL())
	results, err := c.Decay(cmd.Context())
	if err != nil {
		return fmt.Errorf("decay: %w", err)
	}

	for _, tier := range []string{"short", "long"} {
		r, ok := results[tier]
		if !ok {
			continue
		}
		printOK(fmt.Sprintf("%s-term: %d updated, %d evicted", tier, r.Updated, r.Deleted))
	}
	return nil
}
