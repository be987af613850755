package main

import (
	"encoding/json"
	"strings"

	"github.com/shelfscout/server/internal/app"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one search and print the merged results as JSON",
	Long: `Search runs the same pipeline as POST /api/search: AI recommendations and
catalog matches are fetched concurrently and merged. With --type quote only
the catalog quote search runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		defer logger.Sync()

		application, err := app.New(logger, cfg)
		if err != nil {
			return err
		}
		defer application.Shutdown()

		searchType, _ := cmd.Flags().GetString("type")
		results, err := application.Search().SearchByType(cmd.Context(), searchType, strings.Join(args, " "))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	searchCmd.Flags().String("type", "description", "search type: description or quote")
	rootCmd.AddCommand(searchCmd)
}
