// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/footwear-triage/internal/assessment"
	"github.com/jonathan/footwear-triage/internal/db"
	"github.com/jonathan/footwear-triage/internal/training"
	"github.com/jonathan/footwear-triage/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCascade outputs the classifier decisions for one image.
func (p *Printer) PrintCascade(result *types.CascadeResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Target:   %t\n", result.IsTarget))
	sb.WriteString(fmt.Sprintf("Stage 1:  %s (%.2f)\n", result.Stage1Top.Label, result.Stage1Top.Confidence))
	if result.Stage2Top != nil {
		sb.WriteString(fmt.Sprintf("Stage 2:  %s (%.2f)\n", result.Stage2Top.Label, result.Stage2Top.Confidence))
	} else {
		sb.WriteString("Stage 2:  skipped\n")
	}
	if len(result.Defects) > 0 {
		sb.WriteString(fmt.Sprintf("Defects:  %s\n", strings.Join(result.Defects, ", ")))
	}

	scores := result.RawScores()
	if len(scores) > 0 {
		labels := make([]string, 0, len(scores))
		for label := range scores {
			labels = append(labels, label)
		}
		sort.Slice(labels, func(i, j int) bool { return scores[labels[i]] > scores[labels[j]] })

		sb.WriteString("\nScores:\n")
		count := min(len(labels), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %-20s %.3f\n", labels[i], scores[labels[i]]))
		}
		if len(labels) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(labels)-maxItemsToShow))
		}
	}

	p.printBox("CLASSIFICATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAssessment outputs the generated assessment and whether it is the
// fallback.
func (p *Printer) PrintAssessment(result assessment.Result) {
	a := result.Assessment

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Outcome:     %s\n", result.Outcome))
	if result.Reason != "" {
		reason := result.Reason
		if len(reason) > 40 {
			reason = reason[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("Reason:      %s\n", reason))
	}
	sb.WriteString(fmt.Sprintf("Suggestion:  %s\n", a.Suggestion))
	sb.WriteString(fmt.Sprintf("Title:       %s\n", a.TitleEN))
	sb.WriteString(fmt.Sprintf("Summary:     %s\n", a.Summary))
	if len(a.Defects) > 0 {
		sb.WriteString(fmt.Sprintf("Defects:     %s\n", strings.Join(a.Defects, ", ")))
	}
	sb.WriteString("\nPrices (TWD):\n")
	sb.WriteString(fmt.Sprintf("  90%%  %d - %d\n", a.Prices.Confidence90.Low, a.Prices.Confidence90.High))
	sb.WriteString(fmt.Sprintf("  70%%  %d - %d\n", a.Prices.Confidence70.Low, a.Prices.Confidence70.High))
	sb.WriteString(fmt.Sprintf("  50%%  %d - %d", a.Prices.Confidence50.Low, a.Prices.Confidence50.High))

	p.printBox("ASSESSMENT", sb.String())
}

// PrintTriggerDecision outputs the automatic trigger evaluation.
func (p *Printer) PrintTriggerDecision(decision *training.TriggerDecision) {
	if decision == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Decision:     %s\n", decision.Reason))
	sb.WriteString(fmt.Sprintf("Samples:      %d (%d labeled)\n", decision.Stats.Total, decision.Stats.Labeled))
	sb.WriteString(fmt.Sprintf("Label ratio:  %.2f\n", decision.Stats.LabelRatio()))
	sb.WriteString(fmt.Sprintf("Thresholds:   >= %d labeled, ratio >= %.2f",
		decision.Thresholds.MinNewSamples, decision.Thresholds.MinLabelRatio))
	if decision.Run != nil {
		sb.WriteString(fmt.Sprintf("\nRun:          %s", decision.Run.ID))
	}

	p.printBox("TRAINING TRIGGER", sb.String())
}

// PrintRuns outputs a table of training runs, newest first.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRuns(runs []db.TrainingRun) {
	if len(runs) == 0 {
		fmt.Fprintln(p.out, "No training runs.")
		return
	}

	var sb strings.Builder
	for i, run := range runs {
		sb.WriteString(fmt.Sprintf("%s  %s\n", run.ID.String()[:8], run.Status))
		sb.WriteString(fmt.Sprintf("  %s  %s  n=%d\n",
			run.StartedAt.UTC().Format(time.DateTime), run.TriggerSource, run.SampleCount))
		if run.ErrorMessage != nil {
			msg := *run.ErrorMessage
			if len(msg) > 45 {
				msg = msg[:42] + "..."
			}
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", msg))
		}
		if i < len(runs)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(fmt.Sprintf("TRAINING RUNS (%d)", len(runs)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRegistryEntry outputs a promoted model version.
func (p *Printer) PrintRegistryEntry(entry *db.ModelRegistryEntry) {
	if entry == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Model:     %s\n", entry.ModelName))
	sb.WriteString(fmt.Sprintf("Version:   %s\n", entry.Version))
	sb.WriteString(fmt.Sprintf("Run:       %s\n", entry.RunID))
	sb.WriteString(fmt.Sprintf("Approver:  %s", entry.ApprovedBy))

	p.printBox("✅ MODEL PROMOTED", sb.String())
}
