package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage registered users",
}

var listUsersCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered users",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		listUsers(ctx)
	},
}

func listUsers(ctx context.Context) {
	users, err := provider.ListUsers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list users: %v\n", err)
		os.Exit(1)
	}

	if len(users) == 0 {
		fmt.Println("No users found")
		return
	}

	// Print table header
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tPLAN\tNOTIFY\tCREATED")
	fmt.Fprintln(w, "--\t-----\t----\t------\t-------")

	for _, user := range users {
		notify := "no"
		if user.NotifySync {
			notify = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			user.ID, user.Email, user.Plan, notify, user.CreatedAt.Format(time.DateOnly))
	}

	w.Flush()
	fmt.Printf("\nTotal users: %d\n", len(users))
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(listUsersCmd)
}
