package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/sst/chatbody/internal/config"
	"github.com/sst/chatbody/internal/enrich"
	"github.com/sst/chatbody/internal/logging"
	"github.com/sst/chatbody/internal/status"
	"github.com/sst/chatbody/internal/version"
)

// logStore captures log lines for the server's log endpoint.
var logStore = logging.NewStore(0)

var rootCmd = &cobra.Command{
	Use:   "chatbody",
	Short: "Rank emote completions and enrich chat message bodies",
	Long: `chatbody ranks custom emote completions for a composer token and turns
rendered message bodies into enriched trees: reference chips, links and code
blocks with collapse, copy and syntax highlighting.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl := new(slog.LevelVar)
		logging.Setup(os.Stderr, lvl, logStore)

		debug, _ := cmd.Flags().GetBool("debug")
		cwd, _ := cmd.Flags().GetString("cwd")
		if cwd != "" {
			if err := os.Chdir(cwd); err != nil {
				return fmt.Errorf("failed to change directory: %v", err)
			}
		} else {
			c, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current working directory: %v", err)
			}
			cwd = c
		}
		if _, err := config.Load(cwd, debug, lvl); err != nil {
			return err
		}
		status.InitManager(status.NewService())
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flag("version").Changed {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return nil
		}
		return cmd.Help()
	},
}

// enrichOptions builds the pass options from the loaded config.
func enrichOptions(cfg *config.Config) enrich.Options {
	opts := enrich.DefaultOptions()
	opts.Flags = cfg.Flags()
	layout := opts.Layout.(enrich.LineLayout)
	if cfg.Body.LineHeight > 0 {
		layout.LineHeight = cfg.Body.LineHeight
	}
	if cfg.Body.ViewportHeight > 0 {
		layout.Viewport = cfg.Body.ViewportHeight
	}
	opts.Layout = layout
	return opts
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Version")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().StringP("output-format", "f", "text", "Output format (text, json, html, markdown)")

	rootCmd.AddCommand(completeCmd, enrichCmd, serveCmd)
}
