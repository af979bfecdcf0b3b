package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var flagServerURL string

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pinkmemory",
		Short: "Conversational agent with two-tier associative memory",
		Long: `Pinkmemory - Conversational agent with two-tier associative memory.

Chat with the agent, store and recall memories, drive reflection and
decay, and manage the server's runtime settings from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "server URL (default http://localhost:8431)")

	rootCmd.AddCommand(newVersionCmd(version))
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newRememberCmd())
	rootCmd.AddCommand(newRecallCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newForgetCmd())
	rootCmd.AddCommand(newReflectCmd())
	rootCmd.AddCommand(newDecayCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newSettingsCmd())

	return rootCmd
}

func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

func getServerURL() string {
	if flagServerURL != "" {
		return flagServerURL
	}
	if env := os.Getenv("PINKMEMORY_URL"); env != "" {
		return env
	}
	return "http://localhost:8431"
}
