package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	aiapp "github.com/bryanwahyu/ayursense/internal/application/ai"
	"github.com/bryanwahyu/ayursense/internal/application/collection"
	"github.com/bryanwahyu/ayursense/internal/application/decision"
	"github.com/bryanwahyu/ayursense/internal/application/poller"
	"github.com/bryanwahyu/ayursense/internal/application/workflow"
	"github.com/bryanwahyu/ayursense/internal/config"
	"github.com/bryanwahyu/ayursense/internal/domain/reading"
	"github.com/bryanwahyu/ayursense/internal/domain/session"
	"github.com/bryanwahyu/ayursense/internal/infra/ai/openai"
)

var (
	conditionKind string
	conditionText string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one collection session and print the verdict",
	Long: `Select a condition, collect live and synthesized readings for the
configured session duration, then print the safety verdict.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&conditionKind, "condition", "c", "", "condition kind (see 'etongue conditions')")
	analyzeCmd.Flags().StringVar(&conditionText, "custom", "", "description when --condition=other")
	_ = analyzeCmd.MarkFlagRequired("condition")
	rootCmd.AddCommand(analyzeCmd)
}

func newDecider(c *config.Config) session.Decider {
	if c.Decision.Provider == config.ProviderOpenAI {
		return aiapp.NewService(openai.NewClient(c.OpenAI.APIKey, c.OpenAI.Model), logger)
	}
	return decision.NewReference(nil, c.Decision.SafeProbability)
}

func failurePolicy(c *config.Config) poller.FailurePolicy {
	if c.Client.OnFailure == config.OnFailureMark {
		return poller.MarkOnFailure
	}
	return poller.RetainOnFailure
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	events := make(chan workflow.Event, 64)

	m := workflow.NewMachine(workflow.Config{
		Collection: collection.Config{
			Duration:    cfg.Session.Duration,
			Tick:        cfg.Session.Tick,
			Settle:      cfg.Session.Settle,
			LiveChannel: reading.Channel(cfg.Device.Channel),
		},
		PollInterval: cfg.Client.PollInterval,
		PollTimeout:  cfg.Client.RequestTimeout,
		Policy:       failurePolicy(cfg),
	}, newBridgeClient(), newDecider(cfg),
		workflow.WithListener(func(ev workflow.Event) { events <- ev }),
		workflow.WithLogger(logger),
	)
	defer m.Wait()

	if err := m.SelectKind(session.ConditionKind(conditionKind), conditionText); err != nil {
		return err
	}
	fmt.Fprintf(out, "Condition: %s\n", m.Condition().Label())
	fmt.Fprintf(out, "Place the sensor in the liquid. Collecting for %s...\n", cfg.Session.Duration)

	if _, err := m.Start(cmd.Context()); err != nil {
		return err
	}

	for ev := range events {
		switch ev.Kind {
		case workflow.EventProgress:
			printProgress(out, ev.Progress, reading.Channel(cfg.Device.Channel))
		case workflow.EventVerdict:
			printVerdict(out, ev.Verdict)
			return nil
		case workflow.EventFailed:
			if workflow.IsCancelled(ev.Err) {
				fmt.Fprintln(out, "\nSession cancelled.")
				return nil
			}
			return fmt.Errorf("analysis failed: %w", ev.Err)
		}
	}
	return nil
}

var auxiliary = []reading.Channel{reading.ChannelPH, reading.ChannelORP, reading.ChannelTemperature}

func printProgress(w io.Writer, p collection.Progress, live reading.Channel) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%3d/%d] %3.0f%%  %3.0fs left  ", p.Tick, p.Ticks, p.Percent, p.Remaining.Seconds())
	if v, ok := p.Sample.Value(live); ok {
		fmt.Fprintf(&b, "%s=%.1f", live, v)
	} else {
		fmt.Fprintf(&b, "%s=--", live)
	}
	if p.LiveStale {
		b.WriteString(" (stale)")
	}
	for _, ch := range auxiliary {
		if v, ok := p.Sample.Value(ch); ok {
			fmt.Fprintf(&b, "  %s=%.2f", ch, v)
		}
	}
	fmt.Fprintln(w, b.String())
}

func printVerdict(w io.Writer, v session.Verdict) {
	result := "NOT SAFE"
	if v.Safe {
		result = "SAFE"
	}
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintf(w, "Result:      %s to apply\n", result)
	fmt.Fprintf(w, "Confidence:  %.0f%%\n", v.Confidence)
	fmt.Fprintf(w, "Explanation: %s\n", v.Explanation)
	fmt.Fprintln(w, strings.Repeat("=", 60))
}
