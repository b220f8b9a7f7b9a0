// This file contains the one-shot task command.
package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// taskCmd executes a single prompt and exits
var taskCmd = &cobra.Command{
	Use:   "task [prompt]",
	Short: "Run a single task without entering the chat loop",
	Long: `Sends one prompt to the active backend and prints the rendered answer.
File mentions (@path) are expanded before sending.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		resp, err := svc.ProcessTask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		renderer, _ := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		printMarkdown(renderer, resp.Text)
		fmt.Println(statStyle.Render("backend: " + resp.Backend))
		return nil
	},
}
