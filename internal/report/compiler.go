// Package report compiles one run's aggregated results into a consolidated
// markdown report. Compile is a pure function: no hidden state, no I/O,
// byte-identical output for equal inputs.
package report

import (
	"fmt"
	"strings"
	"time"

	"driftwatch/internal/drift"
	"driftwatch/internal/ledger"
)

const dateLayout = "2006-01-02"

// EntityResult is the per-entity outcome of one run.
type EntityResult struct {
	// Name and URL identify the monitored entity.
	Name string
	URL  string

	// FetchedText is the normalized snapshot text, empty on failure.
	FetchedText string

	// BaselineDate is the date of the baseline compared against, zero when
	// no baseline existed.
	BaselineDate time.Time

	// Drift is the classification outcome, nil on failure.
	Drift *drift.Result

	// Findings is the narrative text for the entity's report section.
	Findings string

	// Failed marks an entity whose processing failed.
	Failed bool

	// NotApproved marks an entity whose fetch approval was rejected or
	// left unresolved. A policy stop, not a failure.
	NotApproved bool
}

// Report is the consolidated outcome of one run.
type Report struct {
	RunDate  time.Time
	Results  []EntityResult // configuration order
	Errors   []ledger.Record
	Markdown string
}

// Counts derives the summary counters from the result list.
func (r *Report) Counts() (processed, drifted, failed int) {
	processed = len(r.Results)
	for _, res := range r.Results {
		if res.Failed {
			failed++
		}
		if res.Drift != nil && res.Drift.Classification == drift.ClassDrift {
			drifted++
		}
	}
	return processed, drifted, failed
}

// Findings builds the narrative text for one entity result. Split out of
// Compile so the orchestrator can attach it to the result itself.
func Findings(res EntityResult) string {
	switch {
	case res.NotApproved:
		return fmt.Sprintf("Fetch for %s was not approved; no snapshot was captured this run.", res.Name)
	case res.Failed:
		return fmt.Sprintf("Processing failed for %s; see the error summary below.", res.Name)
	case res.Drift == nil:
		return fmt.Sprintf("No classification available for %s.", res.Name)
	case res.Drift.Classification == drift.ClassNewEntity:
		return fmt.Sprintf("No historical baseline was available for %s; this run's snapshot becomes the first baseline.", res.Name)
	case res.Drift.Classification == drift.ClassDrift:
		return fmt.Sprintf("Content has shifted significantly from the %s baseline (%.1f%% similar, threshold %.2f). Review the source for product, pricing, or messaging changes.",
			res.BaselineDate.Format(dateLayout), res.Drift.Percent, res.Drift.Threshold)
	default:
		return fmt.Sprintf("Content is stable relative to the %s baseline (%.1f%% similar).",
			res.BaselineDate.Format(dateLayout), res.Drift.Percent)
	}
}

// Compile renders the consolidated report. Deterministic: the only date in
// the output is the run date carried by the input.
func Compile(runDate time.Time, results []EntityResult, errors []ledger.Record) string {
	var sb strings.Builder

	drifted := driftedNames(results)
	failed := 0
	for _, res := range results {
		if res.Failed {
			failed++
		}
	}

	// Executive summary.
	sb.WriteString("# Competitive Intelligence Report\n\n")
	fmt.Fprintf(&sb, "**Run date:** %s\n", runDate.Format(dateLayout))
	fmt.Fprintf(&sb, "**Entities monitored:** %d\n", len(results))
	fmt.Fprintf(&sb, "**Drift detected:** %d\n", len(drifted))
	fmt.Fprintf(&sb, "**Failures:** %d\n\n", failed)

	// One section per entity, in configuration order.
	for _, res := range results {
		writeEntitySection(&sb, res)
	}

	// Error summary.
	sb.WriteString("## Error Summary\n\n")
	if len(errors) == 0 {
		sb.WriteString("All entities were processed without errors.\n\n")
	} else {
		for _, rec := range errors {
			if rec.Subject != "" {
				fmt.Fprintf(&sb, "- [%s] %s: %s\n", rec.Kind, rec.Subject, rec.Message)
			} else {
				fmt.Fprintf(&sb, "- [%s] %s\n", rec.Kind, rec.Message)
			}
		}
		sb.WriteString("\n")
	}

	// Recommendations.
	sb.WriteString("## Recommendations\n\n")
	if len(drifted) == 0 {
		sb.WriteString("No significant drift detected. Continue regular monitoring.\n")
	} else {
		sb.WriteString("Review the following entities for meaningful changes:\n\n")
		for _, name := range drifted {
			fmt.Fprintf(&sb, "- %s\n", name)
		}
	}

	return sb.String()
}

// writeEntitySection renders one entity's section, highlighting drift.
func writeEntitySection(sb *strings.Builder, res EntityResult) {
	fmt.Fprintf(sb, "## %s\n\n", res.Name)
	fmt.Fprintf(sb, "**Source:** %s\n", res.URL)

	switch {
	case res.NotApproved:
		sb.WriteString("**Status:** not approved\n")
	case res.Failed:
		sb.WriteString("**Status:** failed\n")
	default:
		sb.WriteString("**Status:** processed\n")
	}

	if !res.BaselineDate.IsZero() {
		fmt.Fprintf(sb, "**Baseline:** %s\n", res.BaselineDate.Format(dateLayout))
	} else {
		sb.WriteString("**Baseline:** none\n")
	}

	if res.Drift != nil && res.Drift.Classification != drift.ClassNewEntity {
		fmt.Fprintf(sb, "**Similarity:** %.1f%% (%s)\n", res.Drift.Percent, res.Drift.Classification)
	}

	sb.WriteString("\n")
	if res.Findings != "" {
		sb.WriteString(res.Findings)
		sb.WriteString("\n\n")
	}

	// Highlighted block only for drift-classified entities.
	if res.Drift != nil && res.Drift.Classification == drift.ClassDrift {
		fmt.Fprintf(sb, "> **DRIFT DETECTED** — similarity %.1f%% fell below the %.2f threshold.\n\n",
			res.Drift.Percent, res.Drift.Threshold)
	}
}

// driftedNames lists drift-classified entity names in configuration order.
func driftedNames(results []EntityResult) []string {
	var names []string
	for _, res := range results {
		if res.Drift != nil && res.Drift.Classification == drift.ClassDrift {
			names = append(names, res.Name)
		}
	}
	return names
}
