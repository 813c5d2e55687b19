// Package orchestrator drives one monitoring run: for each configured
// entity it requests fetch approval, captures a snapshot, looks up the
// prior baseline, classifies drift, and finally compiles and persists one
// consolidated report.
//
// Failure isolation is the core policy: any per-entity failure is caught,
// recorded in the error ledger, and converted into a failed entity result.
// The batch always completes and one report is always produced.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"driftwatch/internal/approval"
	"driftwatch/internal/baseline"
	"driftwatch/internal/config"
	"driftwatch/internal/drift"
	"driftwatch/internal/fetch"
	"driftwatch/internal/ledger"
	"driftwatch/internal/logging"
	"driftwatch/internal/report"

	"golang.org/x/sync/errgroup"
)

// Deps are the orchestrator's collaborators. All are explicit instances
// scoped to this orchestrator; nothing is a process-global singleton, so
// two runs in the same process share state only if the caller shares it.
type Deps struct {
	Gate       *approval.Gate
	Policy     approval.Policy
	Ledger     *ledger.Ledger
	Store      *baseline.Store
	Classifier *drift.Classifier
	Fetcher    fetch.Fetcher
}

// Options tune run behavior.
type Options struct {
	// ApprovalTimeout bounds how long a fetch approval may stay pending.
	ApprovalTimeout time.Duration

	// MaxConcurrent bounds entity fan-out. Values below 1 mean sequential.
	MaxConcurrent int

	// PerEntitySnapshots additionally saves each entity's fetched text
	// under its own namespace and prefers that namespace for baselines.
	PerEntitySnapshots bool
}

// Orchestrator runs the drift-monitoring pipeline.
type Orchestrator struct {
	gate       *approval.Gate
	policy     approval.Policy
	ledger     *ledger.Ledger
	store      *baseline.Store
	classifier *drift.Classifier
	fetcher    fetch.Fetcher
	opts       Options

	now func() time.Time // test seam
}

// New creates an orchestrator over the given collaborators.
func New(deps Deps, opts Options) *Orchestrator {
	policy := deps.Policy
	if policy == nil {
		policy = approval.AutoApprover{}
	}
	return &Orchestrator{
		gate:       deps.Gate,
		policy:     policy,
		ledger:     deps.Ledger,
		store:      deps.Store,
		classifier: deps.Classifier,
		fetcher:    deps.Fetcher,
		opts:       opts,
		now:        time.Now,
	}
}

// Run processes every entity in configuration order and returns the
// consolidated report. An empty entity list is a configuration-level
// precondition failure: nothing is processed and the report carries only
// that error.
func (o *Orchestrator) Run(ctx context.Context, entities []config.Entity) *report.Report {
	runDate := o.now()
	logging.Run("Run started: %d entities, date=%s", len(entities), runDate.Format("2006-01-02"))

	if len(entities) == 0 {
		return o.FailConfiguration(fmt.Errorf("no entities configured"))
	}

	// Bounded fan-out. Results are indexed by configuration position so
	// any execution order still yields a report in configuration order.
	// Gate and ledger serialize their own appends internally.
	results := make([]*report.EntityResult, len(entities))

	g, runCtx := errgroup.WithContext(ctx)
	limit := o.opts.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, entity := range entities {
		// A cancelled run stops starting new entities; entities already
		// in flight run to completion so none is left half-processed.
		if ctx.Err() != nil {
			logging.Run("Run cancelled before entity %q: %v", entity.Name, ctx.Err())
			break
		}
		i, entity := i, entity
		g.Go(func() error {
			res := o.processEntity(runCtx, entity, runDate)
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in results

	completed := make([]report.EntityResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			completed = append(completed, *res)
		}
	}

	return o.compileAndPersist(runDate, completed)
}

// FailConfiguration records a configuration-level failure and yields the
// error-only report. Nothing is persisted: a run that never started must
// not become the next run's baseline.
func (o *Orchestrator) FailConfiguration(err error) *report.Report {
	runDate := o.now()
	logging.Get(logging.CategoryRun).Error("Configuration failure: %v", err)

	o.ledger.Append(ledger.KindConfiguration, err.Error(), "", nil)
	records := o.ledger.All()

	return &report.Report{
		RunDate:  runDate,
		Errors:   records,
		Markdown: report.Compile(runDate, nil, records),
	}
}

// processEntity runs the approval -> fetch -> baseline -> classify pipeline
// for one entity. It never returns an error: every failure is degraded to
// a failed result so sibling entities are unaffected.
func (o *Orchestrator) processEntity(ctx context.Context, entity config.Entity, runDate time.Time) (res report.EntityResult) {
	res = report.EntityResult{Name: entity.Name, URL: entity.URL}

	// Unexpected failures (including panics) become execution errors
	// scoped to this entity.
	defer func() {
		if r := recover(); r != nil {
			o.ledger.Append(ledger.KindExecution, fmt.Sprintf("unexpected failure: %v", r), entity.Name, nil)
			res.Failed = true
			res.Findings = report.Findings(res)
			logging.Get(logging.CategoryRun).Error("Entity %q: recovered from %v", entity.Name, r)
		}
	}()

	// 1. Approval checkpoint. A rejected, ignored, or expired request is
	// a policy stop, not a failure: no error is recorded.
	if !o.approveFetch(entity) {
		res.NotApproved = true
		res.Findings = report.Findings(res)
		logging.Run("Entity %q: fetch not approved, skipping", entity.Name)
		return res
	}

	// 2. Capture the snapshot.
	text, err := o.fetcher.Fetch(ctx, entity.URL)
	if err == nil && text == "" {
		err = fmt.Errorf("no content extracted from %s", entity.URL)
	}
	if err != nil {
		o.ledger.Append(ledger.KindNetwork, err.Error(), entity.Name, map[string]string{"url": entity.URL})
		res.Failed = true
		res.Findings = report.Findings(res)
		return res
	}
	res.FetchedText = text

	if o.opts.PerEntitySnapshots {
		if _, err := o.store.Save(entity.Name, text, runDate); err != nil {
			// Snapshot persistence is best-effort; the run-level report
			// is the durable artifact.
			logging.Get(logging.CategoryStore).Warn("Entity %q: snapshot save failed: %v", entity.Name, err)
		}
	}

	// 3. Baseline lookup and classification.
	snap, err := o.findBaseline(entity, runDate)
	if err != nil {
		o.ledger.Append(ledger.KindExecution, fmt.Sprintf("baseline lookup failed: %v", err), entity.Name, nil)
		res.Failed = true
		res.Findings = report.Findings(res)
		return res
	}

	if snap == nil {
		result := o.classifier.NewEntity()
		res.Drift = &result
		res.Findings = report.Findings(res)
		return res
	}

	content, err := o.store.Read(*snap)
	if err != nil {
		o.ledger.Append(ledger.KindExecution, fmt.Sprintf("baseline read failed: %v", err), entity.Name, nil)
		res.Failed = true
		res.Findings = report.Findings(res)
		return res
	}

	result, err := o.classifier.Diff(ctx, text, baseline.BaselineText(content))
	if err != nil {
		o.ledger.Append(ledger.KindExecution, fmt.Sprintf("classification failed: %v", err), entity.Name, nil)
		res.Failed = true
		res.Findings = report.Findings(res)
		return res
	}

	res.BaselineDate = snap.Date
	res.Drift = &result
	res.Findings = report.Findings(res)
	return res
}

// approveFetch raises the approval request, lets the policy act on the
// pending queue, and reports whether the request ended approved.
func (o *Orchestrator) approveFetch(entity config.Entity) bool {
	req := o.gate.Request(
		approval.ActionFetch,
		fmt.Sprintf("Fetch %s (%s)", entity.Name, entity.URL),
		entity.URL,
		o.opts.ApprovalTimeout,
	)

	o.pumpApprovals()

	cur, ok := o.gate.Get(req.ID)
	return ok && cur.Status == approval.StatusApproved
}

// pumpApprovals walks the pending queue oldest-first, applying the policy.
// An Ignore verdict stops the pump: the request stays pending and will
// expire on a later access.
func (o *Orchestrator) pumpApprovals() {
	for {
		pending, ok := o.gate.NextPending()
		if !ok {
			return
		}
		switch o.policy.Decide(pending) {
		case approval.DecisionApprove:
			o.gate.Resolve(pending.ID, approval.StatusApproved, o.policy.Name())
		case approval.DecisionReject:
			o.gate.Resolve(pending.ID, approval.StatusRejected, o.policy.Name())
		default:
			return
		}
	}
}

// findBaseline locates the nearest snapshot strictly before the run date.
// In per-entity mode the entity's own namespace wins over the shared store.
func (o *Orchestrator) findBaseline(entity config.Entity, runDate time.Time) (*baseline.Snapshot, error) {
	if o.opts.PerEntitySnapshots {
		snap, err := o.store.FindNearestBefore(entity.Name, runDate)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			return snap, nil
		}
	}
	return o.store.FindNearestBefore("", runDate)
}

// compileAndPersist builds the consolidated report, saves it as the next
// run's baseline, and saves the error-summary artifact. Persistence
// failures are recorded as report-kind errors; the in-memory report is
// returned regardless.
func (o *Orchestrator) compileAndPersist(runDate time.Time, results []report.EntityResult) *report.Report {
	records := o.ledger.All()
	markdown := report.Compile(runDate, results, records)

	rep := &report.Report{
		RunDate:  runDate,
		Results:  results,
		Errors:   records,
		Markdown: markdown,
	}

	if _, err := o.store.Save("", markdown, runDate); err != nil {
		o.ledger.Append(ledger.KindReport, fmt.Sprintf("failed to persist report: %v", err), "", nil)
		rep.Errors = o.ledger.All()
		logging.Get(logging.CategoryReport).Error("Report persistence failed: %v", err)
	}

	if _, err := o.store.SaveErrorSummary(o.ledger.Summarize(), runDate); err != nil {
		o.ledger.Append(ledger.KindReport, fmt.Sprintf("failed to persist error summary: %v", err), "", nil)
		rep.Errors = o.ledger.All()
		logging.Get(logging.CategoryReport).Error("Error summary persistence failed: %v", err)
	}

	processed, drifted, failed := rep.Counts()
	logging.Run("Run complete: processed=%d drifted=%d failed=%d errors=%d", processed, drifted, failed, len(rep.Errors))
	return rep
}
