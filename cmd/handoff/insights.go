// This file contains the analytics insights command.
package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"handoff/internal/analytics"
	"handoff/internal/store"
)

var insightsDays int

// insightsCmd reports analytics over recorded backend switches
var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show optimization analytics and tuning suggestions",
	Long: `Aggregates recorded backend switches: per-backend performance, common
transition patterns, and the learner's improvement plan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := store.NewEventStore(cfg.AnalyticsPath())
		if err != nil {
			return err
		}
		defer events.Close()

		analyzer := analytics.NewAnalyzer(events)
		learner := analytics.NewLearner(analyzer)

		performance, err := analyzer.PerformanceByBackend(insightsDays)
		if err != nil {
			return err
		}
		if len(performance) == 0 {
			fmt.Println("no optimization events recorded yet")
			return nil
		}

		fmt.Println("Backend performance (last", insightsDays, "days):")
		names := make([]string, 0, len(performance))
		for name := range performance {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := performance[name]
			fmt.Printf("  %-8s  %4d switches | compression %.2f | quality %.2f | satisfaction %.1f\n",
				name, p.TotalOptimizations, p.AvgCompressionRatio, p.AvgQualityScore, p.UserSatisfaction)
		}

		patterns, err := analyzer.DetectPatterns()
		if err != nil {
			return err
		}
		if len(patterns.TopTransitions) > 0 {
			fmt.Println("\nTop transitions:")
			for _, t := range patterns.TopTransitions {
				fmt.Printf("  %s -> %s (%d)\n", t.From, t.To, t.Count)
			}
		}
		if patterns.Compression != nil {
			fmt.Printf("\nCompression trend: %s (%.2f -> %.2f)\n",
				patterns.Compression.Trend,
				patterns.Compression.OlderAvg, patterns.Compression.RecentAvg)
		}
		if patterns.Satisfaction != nil {
			fmt.Printf("Satisfaction: avg %.1f, trend %s\n",
				patterns.Satisfaction.AvgSatisfaction, patterns.Satisfaction.Trend)
		}

		plan, err := learner.GenerateImprovementPlan()
		if err != nil {
			return err
		}
		if len(plan.PriorityImprovements) > 0 {
			fmt.Println("\nSuggested improvements:")
			for _, imp := range plan.PriorityImprovements {
				fmt.Printf("  - %s (impact %.2f): %s\n", imp.Issue, imp.Impact, imp.Action)
			}
		}
		for backendName, suggestion := range plan.WeightAdjustments {
			fmt.Printf("\nWeight suggestion for %s:\n", backendName)
			for _, reason := range suggestion.Reasons {
				fmt.Printf("  - %s\n", reason)
			}
		}
		if len(plan.MonitoringFocus) > 0 {
			fmt.Println("\nWatch:")
			for _, m := range plan.MonitoringFocus {
				fmt.Printf("  - %s\n", m)
			}
		}
		return nil
	},
}

func init() {
	insightsCmd.Flags().IntVar(&insightsDays, "days", 30, "analysis window in days")
}
