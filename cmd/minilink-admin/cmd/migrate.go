package cmd

import (
	"fmt"

	"github.com/minilink/backend/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		fmt.Println("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
