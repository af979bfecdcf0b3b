package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newForgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forget TIER ID",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(2),
		RunE:  runForget,
	}
	cmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
	return cmd
}

func runForget(cmd *cobra.Command, args []string) error {
	tier := args[0]
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid memory id %q", args[1])
	}
	force, _ := cmd.Flags().GetBool("force")

	c := client.New(getServerURL())

	if !force {
		mem, err := c.GetMemory(cmd.Context(), tier, id)
		if err != nil {
			return fmt.Errorf("get memory: %w", err)
		}
		fmt.Printf("  Delete %s-term memory #%d: %s\n", mem.Tier, mem.ID, firstLine(mem.Text, 60))
		fmt.Print("  Are you sure? [y/N] ")

		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("  Cancelled.")
			return nil
		}
	}

	if err := c.DeleteMemory(cmd.Context(), tier, id); err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}

	printOK("Memory deleted.")
	return nil
}
