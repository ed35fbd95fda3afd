package cli

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the default categories",
	Long: `Create tables (or MongoDB indexes) and seed the default categories.
Running it again is harmless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Migrate(ctx); err != nil {
			return err
		}
		log.WithField("driver", cfg.Database.Driver).Info("schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
