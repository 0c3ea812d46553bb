package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"litegram/pkg/match"
	"litegram/pkg/payload"
)

var (
	matchUpdateFile string
	matchPath       string

	matchedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78"))
	missedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	argStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("153"))
)

var matchCmd = &cobra.Command{
	Use:   "match <pattern> [text]",
	Short: "Check whether a rule pattern matches some text",
	Long: `Evaluates a rule pattern the way the dispatcher does and prints the captured arguments.

The candidate is the text argument, or the value at --path inside the update read from --update.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, err := matchCandidate(args)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderMatch(args[0], candidate, match.Match(args[0], candidate)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().StringVar(&matchUpdateFile, "update", "", "update JSON file to read the candidate from (- for stdin)")
	matchCmd.Flags().StringVar(&matchPath, "path", "*.text", "field path inside the update")
}

func matchCandidate(args []string) (string, error) {
	if matchUpdateFile == "" {
		if len(args) < 2 {
			return "", fmt.Errorf("text argument or --update is required")
		}
		return args[1], nil
	}

	raw, err := readUpdate(matchUpdateFile)
	if err != nil {
		return "", err
	}

	p, err := payload.New(raw)
	if err != nil {
		return "", err
	}

	value, ok := p.Resolve(matchPath)
	if !ok {
		return "", fmt.Errorf("path %q not found in update", matchPath)
	}
	return value.String(), nil
}

func readUpdate(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func renderMatch(pattern, candidate string, result match.Result) string {
	if !result.Matched {
		return missedStyle.Render("no match") + fmt.Sprintf(" %q against %q", pattern, candidate)
	}

	lines := []string{matchedStyle.Render("match") + fmt.Sprintf(" %q against %q", pattern, candidate)}
	for i, arg := range result.Args {
		lines = append(lines, argStyle.Render(fmt.Sprintf("  $%d = %q", i+1, arg)))
	}
	return strings.Join(lines, "\n")
}
