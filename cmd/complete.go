package cmd

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/sst/chatbody/internal/completions"
	"github.com/sst/chatbody/internal/config"
	"github.com/sst/chatbody/internal/emote"
	"github.com/sst/chatbody/internal/format"
)

var completeCmd = &cobra.Command{
	Use:   "complete [text]",
	Short: "Rank emote completions for the token at the caret",
	Long: `Rank custom emote completions for the composer text. The caret defaults to
the end of the text; text is read from stdin when piped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFormat, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		text := ""
		if len(args) == 1 {
			text = args[0]
		} else if piped, ok := checkStdinPipe(); ok {
			text = strings.TrimRight(piped, "\r\n")
		}

		cfg := config.Get()
		path, _ := cmd.Flags().GetString("emotes")
		if path == "" {
			path = cfg.Emotes.Path
		}
		caret, _ := cmd.Flags().GetInt("caret")
		if caret < 0 {
			caret = utf8.RuneCountInString(text)
		}
		force, _ := cmd.Flags().GetBool("force")
		limit, _ := cmd.Flags().GetInt("limit")

		manager := completions.NewCompletionManager(
			completions.NewEmojiProvider(emote.LoadFile(path), cfg.Flags()),
		)
		groups := manager.GetCompletions(text, completions.Selection{Start: caret, End: caret}, force, limit)

		out, err := format.FormatCompletions(groups, outputFormat)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func outputFormat(cmd *cobra.Command) (format.OutputFormat, error) {
	s, _ := cmd.Flags().GetString("output-format")
	f, err := format.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid output format: %s", s)
	}
	return f, nil
}

func init() {
	completeCmd.Flags().String("emotes", "", "Emote account data file (JSON or JSONC)")
	completeCmd.Flags().Int("caret", -1, "Caret position in runes (default end of text)")
	completeCmd.Flags().Bool("force", false, "Browse all emotes even without a token")
	completeCmd.Flags().Int("limit", -1, "Matcher limit before ranking (-1 for all)")
}
