// This file contains the interactive chat loop.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"handoff/internal/backend"
	ctxopt "handoff/internal/context"
)

// serviceAPI is the slice of the session service the command handler needs.
type serviceAPI interface {
	SwitchBackend(target string) (ctxopt.SwitchResult, error)
	CurrentBackend() string
	Backends() []string
	HealthCheck(ctx context.Context) map[string]backend.Health
	Stats() (ctxopt.ConversationStats, error)
	RecordFeedback(rating float64) error
}

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	backendStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	shellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// runChat starts the interactive loop on stdin.
func runChat(cmd *cobra.Command) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		fmt.Println()
		os.Exit(0)
	}()

	fmt.Printf("handoff %s | session %s | backend %s\n",
		cfg.Version, svc.SessionID(), backendStyle.Render(svc.CurrentBackend()))
	fmt.Println("Type /help for commands, > to run shell, @file to include a file, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(promptStyle.Render(fmt.Sprintf("[%s] > ", svc.CurrentBackend())))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(ctx, svc, input); quit {
				break
			}
			continue
		}

		resp, err := svc.ProcessChat(ctx, input)
		if err != nil {
			fmt.Println(errorStyle.Render("error: " + err.Error()))
			continue
		}

		if resp.FromShell {
			fmt.Println(shellStyle.Render(resp.Text))
			continue
		}
		printMarkdown(renderer, resp.Text)
	}
	return scanner.Err()
}

// handleCommand dispatches a /slash command. Returns true to exit the loop.
func handleCommand(ctx context.Context, svc serviceAPI, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`Commands:
  /switch <backend>   optimize context and switch backend
  /backends           list configured backends
  /health             probe all backends
  /stats              show live conversation statistics
  /feedback <1-5>     rate the last backend switch
  /quit               exit`)

	case "/switch":
		if len(fields) < 2 {
			fmt.Println(errorStyle.Render("usage: /switch <backend>"))
			return false
		}
		result, err := svc.SwitchBackend(fields[1])
		if err != nil {
			fmt.Println(errorStyle.Render("error: " + err.Error()))
			return false
		}
		fmt.Println(statStyle.Render(fmt.Sprintf(
			"switched %s -> %s | compression %.2f | quality %.2f | ~%.1fs saved",
			result.SourceBackend, result.TargetBackend,
			result.Optimized.CompressionRatio,
			result.Optimized.QualityScore,
			result.Optimized.EstimatedTimeSavings)))

	case "/backends":
		current := svc.CurrentBackend()
		for _, name := range svc.Backends() {
			marker := "  "
			if name == current {
				marker = "* "
			}
			fmt.Println(marker + name)
		}

	case "/health":
		for name, h := range svc.HealthCheck(ctx) {
			status := backendStyle.Render("ok")
			if !h.Available {
				status = errorStyle.Render("down: " + h.Error)
			}
			fmt.Printf("  %-8s %s (%s, %dms)\n", name, status, h.Model, h.ResponseTimeMs)
		}

	case "/stats":
		stats, err := svc.Stats()
		if err != nil {
			fmt.Println(errorStyle.Render("error: " + err.Error()))
			return false
		}
		fmt.Println(statStyle.Render(fmt.Sprintf(
			"messages %d | context %d chars (~%d tokens) | backend %s",
			stats.MessageCount, stats.ContextLength, stats.EstimatedTokens, stats.CurrentBackend)))

	case "/feedback":
		if len(fields) < 2 {
			fmt.Println(errorStyle.Render("usage: /feedback <1-5>"))
			return false
		}
		rating, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || rating < 1 || rating > 5 {
			fmt.Println(errorStyle.Render("rating must be between 1 and 5"))
			return false
		}
		if err := svc.RecordFeedback(rating); err != nil {
			fmt.Println(errorStyle.Render("error: " + err.Error()))
			return false
		}
		fmt.Println(statStyle.Render("thanks, recorded"))

	default:
		fmt.Println(errorStyle.Render("unknown command: " + fields[0]))
	}
	return false
}

// printMarkdown renders text through glamour, falling back to plain output.
func printMarkdown(renderer *glamour.TermRenderer, text string) {
	if renderer != nil {
		if out, err := renderer.Render(text); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Println(text)
}
