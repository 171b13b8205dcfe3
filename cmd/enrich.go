package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sst/chatbody/internal/config"
	"github.com/sst/chatbody/internal/enrich"
	"github.com/sst/chatbody/internal/format"
	"github.com/sst/chatbody/internal/render"
	"golang.org/x/sync/errgroup"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [files...]",
	Short: "Render and enrich message bodies",
	Long: `Render and enrich message bodies. Files ending in .json hold message event
content, .html files a formatted body, anything else a plain body. With no
files the body is read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFormat, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		ropts := render.Options{}
		ropts.StripReplyFallback, _ = cmd.Flags().GetBool("strip-reply")
		ropts.Markdown, _ = cmd.Flags().GetBool("markdown")
		ropts.HighlightTerms, _ = cmd.Flags().GetStringSlice("highlight")
		opts := enrichOptions(config.Get())

		inputs := make([]input, 0, len(args))
		if len(args) == 0 {
			data, ok := checkStdinPipe()
			if !ok {
				return fmt.Errorf("no input: pass files or pipe a body on stdin")
			}
			name, _ := cmd.Flags().GetString("stdin-name")
			inputs = append(inputs, input{name: name, data: data})
		}
		for _, path := range args {
			inputs = append(inputs, input{name: path})
		}

		outputs := make([]string, len(inputs))
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, in := range inputs {
			i, in := i, in
			g.Go(func() error {
				out, err := enrichInput(in, ropts, opts, outputFormat)
				if err != nil {
					return err
				}
				outputs[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		sep := "\n"
		if outputFormat == format.MarkdownFormat || outputFormat == format.TextFormat {
			sep = "\n\n"
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(outputs, sep))
		return nil
	},
}

type input struct {
	name string
	data string
}

// enrichInput renders one body with its own pipeline so bodies can be
// processed in parallel.
func enrichInput(in input, ropts render.Options, opts enrich.Options, f format.OutputFormat) (string, error) {
	data := in.data
	if data == "" && in.name != "" {
		raw, err := os.ReadFile(in.name)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", in.name, err)
		}
		data = string(raw)
	}
	content, err := parseContent(in.name, data)
	if err != nil {
		return "", err
	}

	pipeline := enrich.NewPipeline(enrich.NewWorkQueue())
	defer pipeline.Shutdown()
	cache := enrich.NewCache()
	defer cache.Clear()

	tree, _, err := pipeline.Display(cache, content, ropts, opts, nil)
	if err != nil {
		return "", fmt.Errorf("enriching %s: %w", in.name, err)
	}
	pipeline.Queue().Drain()
	return format.FormatBody(in.name, tree, f)
}

func init() {
	enrichCmd.Flags().Bool("strip-reply", false, "Strip reply fallbacks")
	enrichCmd.Flags().Bool("markdown", false, "Render plain bodies as markdown")
	enrichCmd.Flags().StringSlice("highlight", nil, "Search terms to highlight (comma-separated list)")
	enrichCmd.Flags().String("stdin-name", "stdin.txt", "Name used to detect the stdin body type (.json, .html, .txt)")
}
