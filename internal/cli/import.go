package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Restore memories from a JSON dump",
		Long:  `Restore memories from a JSON dump produced by export. Replaces the current contents of both tiers.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	var dump client.ExportResult
	if err := json.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}

	c := client.New(getServerURL())
	if err := c.Import(cmd.Context(), dump.Records); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	printOK(fmt.Sprintf("Imported %d memories.", len(dump.Records)))
	return nil
}
