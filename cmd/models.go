package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/zrlgs/gembot/internal/config"
	"github.com/zrlgs/gembot/internal/gemini"
	"github.com/zrlgs/gembot/internal/log"
	"github.com/zrlgs/gembot/internal/registry"
)

// modelsCmd lists the generation-capable models the configured API key can
// reach. Handy for picking a default_model without starting the bot.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available Gemini models",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		ctx := cmd.Context()
		client, err := gemini.New(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("initializing gemini client: %w", err)
		}

		reg := registry.New(client, cfg.FallbackModels, cfg.ModelCacheTTL, log.NewNop())
		catalog := reg.Models(ctx)

		ids := make([]string, 0, len(catalog))
		for id := range catalog {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			marker := "  "
			if id == cfg.DefaultModel {
				marker = "* "
			}
			if catalog[id] != id {
				fmt.Printf("%s%s\t%s\n", marker, id, catalog[id])
			} else {
				fmt.Printf("%s%s\n", marker, id)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
