package cmd

import (
	"fmt"
	"os"

	"github.com/minilink/backend/internal/config"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "minilink-admin",
	Short: "MiniLink admin — operate the database from the terminal",
	Long: `MiniLink admin runs operational tasks against the MiniLink database.

Get started:
  minilink-admin migrate    Apply schema migrations
  minilink-admin seed       Create a demo user with sample links
  minilink-admin stats      Print row counts per table`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
	},
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func openDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Name,
		cfg.DB.SSLMode,
	)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}
