package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent memories in a tier",
		RunE:  runList,
	}
	cmd.Flags().StringP("tier", "t", "short", "Memory tier: short|long")
	cmd.Flags().IntP("limit", "l", 20, "Maximum number of memories")
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	tier, _ := cmd.Flags().GetString("tier")
	limit, _ := cmd.Flags().GetInt("limit")

	c := client.New(getServerURL())
	memories, err := c.ListMemories(cmd.Context(), tier, limit)
	if err != nil {
		return fmt.Errorf("list memories: %w", err)
	}

	printMemoryList(memories)
	return nil
}
