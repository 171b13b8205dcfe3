package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/sst/chatbody/internal/completions"
	"github.com/sst/chatbody/internal/config"
	"github.com/sst/chatbody/internal/emote"
	"github.com/sst/chatbody/internal/enrich"
	"github.com/sst/chatbody/internal/server"
	"github.com/sst/chatbody/internal/status"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve completion and enrichment over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := config.Get()
		addr, _ := cmd.Flags().GetString("address")
		if addr == "" {
			addr = cfg.Server.Address
		}

		pipeline := enrich.NewPipeline(enrich.NewWorkQueue(), enrich.WithStatus(status.GetService()))
		defer pipeline.Shutdown()

		srv := server.New(server.Deps{
			Completions: completions.NewCompletionManager(
				completions.NewEmojiProvider(emote.LoadFile(cfg.Emotes.Path), cfg.Flags()),
			),
			Pipeline: pipeline,
			Cache:    enrich.NewCache(),
			Options:  enrichOptions(cfg),
			Logs:     logStore,
		})
		return srv.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("address", "", "Listen address (default from config)")
}

