package cmd

import (
	"context"
	"fmt"

	"github.com/minilink/backend/internal/services"
	"github.com/spf13/cobra"
)

var (
	seedEmail    string
	seedUsername string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo user with sample links",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}

		accounts := services.NewAccountService(db)
		links := services.NewLinkService(db)

		ctx := context.Background()
		user, err := accounts.ResolveUser(ctx, services.ExternalIdentity{
			SubjectID:       "seed:" + seedEmail,
			Email:           seedEmail,
			Name:            "Demo User",
			ClaimedUsername: seedUsername,
		})
		if err != nil {
			return fmt.Errorf("creating demo user: %w", err)
		}

		samples := []struct {
			title string
			url   string
		}{
			{"My Website", "https://example.com"},
			{"GitHub", "https://github.com/minilink"},
			{"Blog", "https://blog.example.com"},
		}
		for _, sample := range samples {
			if _, err := links.Create(ctx, user.ID, sample.title, sample.url, nil); err != nil {
				return fmt.Errorf("creating sample link %q: %w", sample.title, err)
			}
		}

		fmt.Printf("seeded user %s (%s) with %d links\n", user.Username, user.Email, len(samples))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedEmail, "email", "demo@minilink.local", "Email for the demo user")
	seedCmd.Flags().StringVar(&seedUsername, "username", "demo", "Username for the demo user")
	rootCmd.AddCommand(seedCmd)
}
