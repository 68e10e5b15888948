package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/doot/internal/delivery"
	"github.com/user/doot/internal/trigger"
)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("route", false, "route the turn to a single capability instead of the delegating dispatcher")
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one message to the assistant and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		routeMode, _ := cmd.Flags().GetBool("route")

		ctx := context.Background()
		asst, err := buildAssistant(ctx, cfg)
		if err != nil {
			return err
		}
		var dispatcher trigger.Dispatcher = asst.dispatcher
		if routeMode {
			dispatcher = routed{d: asst.dispatcher}
		}

		triggers := trigger.NewHandler(dispatcher, asst.sessions, delivery.NewRegistry(), asst.chats, asst.mailer, nil, trigger.Config{})
		reply, err := triggers.Interactive(ctx, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("chat turn failed: %w", err)
		}
		fmt.Fprintln(os.Stdout, reply)
		return nil
	},
}
