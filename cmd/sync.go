package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lynck-space/internal/config"
	"lynck-space/internal/connector"
	"lynck-space/internal/email"
	"lynck-space/internal/sync"
)

var syncUserEmail string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a calendar synchronization pass for a user",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		runSync(ctx)
	},
}

func runSync(ctx context.Context) {
	if syncUserEmail == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		os.Exit(1)
	}

	user, err := provider.GetUserByEmail(ctx, syncUserEmail)
	if err != nil {
		fmt.Fprintf(os.Stderr, "User %s not found: %v\n", syncUserEmail, err)
		os.Exit(1)
	}

	broker := connector.NewBroker(&config.Cfg.Google, provider)
	engine := sync.NewEngine(provider, broker.Remote)
	engine.Mailer = email.NewClient(config.Cfg.Email)

	result, err := engine.Sync(ctx, user.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result.Message)
}

func init() {
	syncCmd.Flags().StringVar(&syncUserEmail, "user", "", "email of the user to sync")
	rootCmd.AddCommand(syncCmd)
}
