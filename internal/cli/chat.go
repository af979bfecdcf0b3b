package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [TEXT]",
		Short: "Chat with the agent",
		Long: `Chat with the agent. With an argument, sends one message and streams
the reply. Without arguments, starts an interactive session; type
/quit to leave.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	c := client.New(getServerURL())

	if len(args) == 1 {
		return chatTurn(cmd, c, args[0])
	}

	fmt.Println(colorize(colorDim, "  Interactive chat. Type /quit to exit."))
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(colorize(colorBold, "you> "))
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if err := chatTurn(cmd, c, line); err != nil {
			printWarn(err.Error())
		}
	}
}

func chatTurn(cmd *cobra.Command, c *client.Client, text string) error {
	fmt.Print(colorize(colorCyan, "agent> "))
	_, err := c.Chat(cmd.Context(), text, func(delta string) {
		fmt.Print(delta)
	})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}
