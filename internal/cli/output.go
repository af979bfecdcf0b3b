package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ExpressedAi/Pinkmemory/internal/client"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
)

func isColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return true
}

func colorize(color, text string) string {
	if !isColorEnabled() {
		return text
	}
	return color + text + colorReset
}

func printOK(msg string) {
	fmt.Println(colorize(colorGreen, "  ✓ ") + msg)
}

func printWarn(msg string) {
	fmt.Println(colorize(colorYellow, "  ! ") + msg)
}

func printHeader(msg string) {
	fmt.Println()
	fmt.Println(colorize(colorBold, "  "+msg))
	fmt.Println(colorize(colorDim, "  "+strings.Repeat("─", len(msg)+2)))
}

func tierColor(tier string) string {
	if tier == "long" {
		return colorGreen
	}
	return colorYellow
}

func printMemory(m *client.Memory) {
	fmt.Println()
	fmt.Printf("  %s %s\n",
		colorize(tierColor(m.Tier), fmt.Sprintf("[%s-term #%d]", m.Tier, m.ID)),
		colorize(colorDim, fmt.Sprintf("score %.2f", m.Score)))
	if m.Source != "" {
		fmt.Printf("  Source: %s\n", m.Source)
	}
	if m.AgentID != "" {
		fmt.Printf("  Agent: %s\n", m.AgentID)
	}
	fmt.Printf("  Created: %s  Last accessed: %s\n", formatTime(m.CreatedAt), formatTime(m.LastAccessed))
	fmt.Println(colorize(colorDim, "  ─────"))
	for _, line := range strings.Split(m.Text, "\n") {
		fmt.Printf("  %s\n", line)
	}
	fmt.Println(colorize(colorDim, "  ─────"))
}

func printMemoryList(memories []client.Memory) {
	if len(memories) == 0 {
		printWarn("No memories found.")
		return
	}
	for _, m := range memories {
		fmt.Printf("  %s %s %s\n",
			colorize(tierColor(m.Tier), fmt.Sprintf("#%-6d", m.ID)),
			firstLine(m.Text, 72),
			colorize(colorDim, fmt.Sprintf("score %.2f", m.Score)),
		)
	}
	fmt.Printf("\n  %s %d memories\n", colorize(colorDim, "Total:"), len(memories))
}

func printRecallResults(resp *client.RecallResponse) {
	printTierResults("Short-term", resp.ShortTerm)
	printTierResults("Long-term", resp.LongTerm)
}

func printTierResults(label string, results []client.RecallResult) {
	fmt.Println()
	fmt.Println(colorize(colorBold, "  "+label))
	if len(results) == 0 {
		printWarn("No results.")
		return
	}
	for _, r := range results {
		fmt.Printf("  %s %s  %s\n",
			colorize(tierColor(r.Record.Tier), fmt.Sprintf("#%-6d", r.Record.ID)),
			firstLine(r.Record.Text, 64),
			colorize(colorDim, fmt.Sprintf("sim %.3f  final %.3f", r.Similarity, r.FinalScore)),
		)
	}
}

func printStats(stats *client.Stats) {
	printHeader("Pinkmemory Stats")
	fmt.Printf("  Short-term:  %s memories  avg score %.2f  max %.2f\n",
		colorize(colorYellow, fmt.Sprintf("%d", stats.ShortTerm.Count)),
		stats.ShortTerm.AvgScore, stats.ShortTerm.MaxScore)
	fmt.Printf("  Long-term:   %s memories  avg score %.2f  max %.2f\n",
		colorize(colorGreen, fmt.Sprintf("%d", stats.LongTerm.Count)),
		stats.LongTerm.AvgScore, stats.LongTerm.MaxScore)
	fmt.Println()
}

func printSettings(s *client.Settings) {
	printHeader("Settings")
	fmt.Printf("  Autonomy:            %v\n", s.Autonomy)
	fmt.Printf("  Reflection interval: %s\n", s.ReflectionInterval)
	fmt.Printf("  Top K:               %d\n", s.TopK)
	fmt.Printf("  Short decay rate:    %g\n", s.ShortDecayRate)
	fmt.Printf("  Long decay rate:     %g\n", s.LongDecayRate)
	fmt.Printf("  Min score:           %g\n", s.MinScore)
	fmt.Println()
}

func firstLine(text string, max int) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	runes := []rune(line)
	if len(runes) > max {
		return string(runes[:max-1]) + "…"
	}
	return line
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
