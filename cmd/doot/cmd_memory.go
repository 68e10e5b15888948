package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/doot/internal/memory"
	"github.com/user/doot/internal/workspace"
)

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryShowCmd, memorySearchCmd, memoryDatesCmd)
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect agent and workspace memory",
}

var memoryShowCmd = &cobra.Command{
	Use:   "show <agent>",
	Short: "Print an agent's accumulated memory (identity, skills, failures)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		mem := memory.NewService(filepath.Join(cfg.DataDir, "memory"))
		agentType := args[0]

		sections := []struct {
			title string
			body  string
		}{
			{"IDENTITY", mem.Identity(agentType)},
			{"SKILLS", mem.Skills(agentType)},
			{"FAILURES", mem.Failures(agentType)},
		}
		empty := true
		for _, s := range sections {
			if strings.TrimSpace(s.body) == "" {
				continue
			}
			empty = false
			fmt.Fprintf(os.Stdout, "== %s ==\n%s\n\n", s.title, strings.TrimSpace(s.body))
		}
		if empty {
			fmt.Printf("No memory recorded for agent %q.\n", agentType)
		}
		return nil
	},
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the shared workspace memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := workspace.NewStore(cfg.WorkspaceDir)

		matches := store.Search(strings.Join(args, " "), 20)
		if len(matches) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, m := range matches {
			fmt.Fprintf(os.Stdout, "%s:%d-%d:\n%s\n", m.Path, m.StartLine, m.EndLine, m.Snippet)
		}
		return nil
	},
}

var memoryDatesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List the daily log dates in workspace memory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := workspace.NewStore(cfg.WorkspaceDir)

		dates := store.Dates()
		if len(dates) == 0 {
			fmt.Println("No daily logs.")
			return nil
		}
		for _, d := range dates {
			fmt.Fprintln(os.Stdout, d)
		}
		return nil
	},
}
