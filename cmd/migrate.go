package cmd

import (
	"github.com/roomify/roomify_server/internal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := internal.InitLogger(config.Log); err != nil {
			return err
		}

		db, err := internal.OpenDB(config.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if args[0] == "down" {
			err = internal.MigrateDown(db)
		} else {
			err = internal.MigrateUp(db)
		}
		if err != nil {
			return err
		}

		log.Info().Str("direction", args[0]).Msg("Migrations applied")
		return nil
	},
}
