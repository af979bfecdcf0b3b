package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change runtime settings",
		RunE:  runShowSettings,
	}
	cmd.AddCommand(newSettingsSetCmd())
	return cmd
}

func runShowSettings(cmd *cobra.Command, args []string) error {
	c := client.New(getServerURL())
	s, err := c.GetSettings(cmd.Context())
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	printSettings(s)
	return nil
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one runtime setting",
		Long: `Change one runtime setting on the server. Keys:

  autonomy             true|false  start or stop autonomous reflection
  reflection_interval  duration    e.g. 2m, 90s (min 30s)
  top_k                int         retrieval hits per tier
  short_decay_rate     float       hourly retention in (0,1)
  long_decay_rate      float       hourly retention in (0,1)
  min_score            float       eviction floor`,
		Args: cobra.ExactArgs(2),
		RunE: runSetSetting,
	}
}

func runSetSetting(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	var update client.SettingsUpdate
	switch key {
	case "autonomy":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid autonomy value %q", value)
		}
		update.Autonomy = &b
	case "reflection_interval":
		update.ReflectionInterval = &value
	case "top_k":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid top_k value %q", value)
		}
		update.TopK = &n
	case "short_decay_rate", "long_decay_rate", "min_score":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value %q", key, value)
		}
		switch key {
		case "short_decay_rate":
			update.ShortDecayRate = &f
		case "long_decay_rate":
			update.LongDecayRate = &f
		case "min_score":
			update.MinScore = &f
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	c := client.New(getServerURL())
	s, err := c.UpdateSettings(cmd.Context(), update)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	printOK("Settings updated.")
	printSettings(s)
	return nil
}
