package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newRememberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remember [TEXT]",
		Short: "Store text in short-term memory",
		Long:  `Store text in short-term memory. Reads from stdin when no argument is given. Long text is chunked by paragraph.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRemember,
	}
	cmd.Flags().StringP("agent", "a", "", "Agent identifier to attribute the memory to")
	cmd.Flags().StringP("source", "s", "", "Origin of the memory (default \"user\")")
	return cmd
}

func runRemember(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimSpace(string(data))
	}

	agent, _ := cmd.Flags().GetString("agent")
	source, _ := cmd.Flags().GetString("source")

	c := client.New(getServerURL())
	result, err := c.Remember(cmd.Context(), client.RememberRequest{
		Text:    text,
		AgentID: agent,
		Source:  source,
	})
	if err != nil {
		return fmt.Errorf("remember: %w", err)
	}

	printOK(fmt.Sprintf("Stored %d memory chunk(s).", result.Count))
	printMemoryList(result.Records)
	return nil
}
