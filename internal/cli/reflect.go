package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newReflectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reflect",
		Short: "Run one reflection cycle now",
		Long:  `Sample short-term memories, synthesize an insight, and seed it into both tiers.`,
		RunE:  runReflect,
	}
}

func runReflect(cmd *cobra.Command, args []string) error {
	c := client.New(getServerURL())
	insight, err := c.Reflect(cmd.Context())
	if err != nil {
		return fmt.Errorf("reflect: %w", err)
	}
	if insight == nil {
		printWarn("Nothing to reflect on: short-term memory is empty.")
		return nil
	}

	printOK("Reflection complete.")
	printMemory(insight)
	return nil
}
