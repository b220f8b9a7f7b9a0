// This file contains the sessions listing and cleanup command.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"handoff/internal/store"
)

var cleanupFlag bool

// sessionsCmd lists saved sessions
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved sessions",
	Long:  `Shows recently saved sessions. With --cleanup, removes sessions older than the configured retention window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := store.NewSessionStore(cfg.SessionsPath())
		if err != nil {
			return err
		}

		if cleanupFlag {
			removed, err := sessions.Cleanup(cfg.Context.RetentionDays)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d session(s) older than %d days\n", removed, cfg.Context.RetentionDays)
		}

		infos := sessions.ListRecent(20)
		if len(infos) == 0 {
			fmt.Println("no saved sessions")
			return nil
		}

		fmt.Printf("%-38s %-8s %-20s %s\n", "SESSION", "BACKEND", "LAST UPDATED", "MESSAGES")
		for _, info := range infos {
			fmt.Printf("%-38s %-8s %-20s %d\n",
				info.ID, info.Model, info.LastUpdated, info.MessageCount)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().BoolVar(&cleanupFlag, "cleanup", false, "remove sessions past the retention window")
}
