package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/user/doot/internal/session"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionClearCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the conversation session",
}

func sessionStore() *session.Store {
	cfg := loadConfig()
	return session.NewStore(filepath.Join(cfg.DataDir, "session.json"))
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := sessionStore()
		messages := store.Load()
		if len(messages) == 0 {
			fmt.Println("No session history.")
			return nil
		}
		for _, m := range messages {
			fmt.Fprintf(os.Stdout, "[%s] %s\n", m.Role, m.Content)
		}
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the persisted conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := sessionStore()
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		fmt.Println("Session cleared.")
		return nil
	},
}
