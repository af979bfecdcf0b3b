package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump all memories as JSON",
		Long:  `Dump all memories from both tiers, including vectors, as JSON. Writes to stdout unless --out is given.`,
		RunE:  runExport,
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	c := client.New(getServerURL())
	result, err := c.Export(cmd.Context())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	printOK(fmt.Sprintf("Exported %d memories to %s.", len(result.Records), out))
	return nil
}
