package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get TIER ID",
		Short: "Show a specific memory",
		Args:  cobra.ExactArgs(2),
		RunE:  runGet,
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid memory id %q", args[1])
	}

	c := client.New(getServerURL())
	mem, err := c.GetMemory(cmd.Context(), args[0], id)
	if err != nil {
		return fmt.Errorf("get memory: %w", err)
	}

	printMemory(mem)
	return nil
}
