package cmd

import (
	"fmt"

	"github.com/minilink/backend/internal/models"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts per table",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}

		var users, links, views, clicks int64
		if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
			return fmt.Errorf("counting users: %w", err)
		}
		if err := db.Model(&models.Link{}).Count(&links).Error; err != nil {
			return fmt.Errorf("counting links: %w", err)
		}
		if err := db.Model(&models.PageView{}).Count(&views).Error; err != nil {
			return fmt.Errorf("counting page views: %w", err)
		}
		if err := db.Model(&models.Click{}).Count(&clicks).Error; err != nil {
			return fmt.Errorf("counting clicks: %w", err)
		}

		fmt.Printf("users:      %d\n", users)
		fmt.Printf("links:      %d\n", links)
		fmt.Printf("page views: %d\n", views)
		fmt.Printf("clicks:     %d\n", clicks)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
