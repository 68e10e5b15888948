package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/doot/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Doot Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.LLM.Provider = prompt(scanner, "LLM provider (anthropic or openai)", cfg.LLM.Provider)
		cfg.LLM.APIKey = prompt(scanner, "LLM API key", cfg.LLM.APIKey)
		cfg.LLM.Model = prompt(scanner, "LLM model name", cfg.LLM.Model)

		maxTokensStr := prompt(scanner, "Max output tokens", strconv.Itoa(cfg.LLM.MaxTokens))
		if n, err := strconv.Atoi(maxTokensStr); err == nil {
			cfg.LLM.MaxTokens = n
		}

		cfg.Gemini.APIKey = prompt(scanner, "Gemini API key for web search (optional)", cfg.Gemini.APIKey)
		cfg.Google.AccessToken = prompt(scanner, "Google access token for Gmail/Calendar (optional)", cfg.Google.AccessToken)
		cfg.Google.UserEmail = prompt(scanner, "Your email address (optional)", cfg.Google.UserEmail)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)
		cfg.Report.Location = prompt(scanner, "Daily report location", cfg.Report.Location)
		cfg.Report.ToEmail = prompt(scanner, "Daily report email (optional)", cfg.Report.ToEmail)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
