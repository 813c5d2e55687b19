package report

import (
	"strings"
	"testing"
	"time"

	"driftwatch/internal/drift"
	"driftwatch/internal/ledger"

	"github.com/google/go-cmp/cmp"
)

func runDate() time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func stableResult(name string) EntityResult {
	res := EntityResult{
		Name:         name,
		URL:          "https://" + strings.ToLower(strings.ReplaceAll(name, " ", "")) + ".test",
		FetchedText:  "page text",
		BaselineDate: time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC),
		Drift: &drift.Result{
			Similarity:     0.95,
			Percent:        97.5,
			Classification: drift.ClassStable,
			Threshold:      0.80,
		},
	}
	res.Findings = Findings(res)
	return res
}

func driftResult(name string) EntityResult {
	res := EntityResult{
		Name:         name,
		URL:          "https://drift.test",
		FetchedText:  "changed text",
		BaselineDate: time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC),
		Drift: &drift.Result{
			Similarity:     0.42,
			Percent:        71.0,
			Classification: drift.ClassDrift,
			Threshold:      0.80,
		},
	}
	res.Findings = Findings(res)
	return res
}

func TestCompile_IsPure(t *testing.T) {
	results := []EntityResult{stableResult("Acme Corp"), driftResult("Globex")}
	errors := []ledger.Record{
		{Timestamp: runDate(), Kind: ledger.KindNetwork, Message: "fetch failed", Subject: "Initech"},
	}

	first := Compile(runDate(), results, errors)
	second := Compile(runDate(), results, errors)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Compile is not byte-identical for equal inputs:\n%s", diff)
	}
}

func TestCompile_SectionPerEntity(t *testing.T) {
	results := []EntityResult{stableResult("Acme Corp"), stableResult("Globex"), stableResult("Initech")}

	out := Compile(runDate(), results, nil)

	for _, name := range []string{"## Acme Corp", "## Globex", "## Initech"} {
		if !strings.Contains(out, name) {
			t.Errorf("missing entity section %q", name)
		}
	}
	// Configuration order is preserved.
	if strings.Index(out, "## Acme Corp") > strings.Index(out, "## Globex") {
		t.Error("entity sections out of configuration order")
	}
}

func TestCompile_DriftHighlightOnlyForDrift(t *testing.T) {
	out := Compile(runDate(), []EntityResult{stableResult("Acme Corp"), driftResult("Globex")}, nil)

	if strings.Count(out, "DRIFT DETECTED") != 1 {
		t.Errorf("expected exactly one drift highlight:\n%s", out)
	}
	acmeSection := out[strings.Index(out, "## Acme Corp"):strings.Index(out, "## Globex")]
	if strings.Contains(acmeSection, "DRIFT DETECTED") {
		t.Error("stable entity must not carry the drift highlight")
	}
}

func TestCompile_RecommendationsListDriftedEntities(t *testing.T) {
	out := Compile(runDate(), []EntityResult{driftResult("Globex"), stableResult("Acme Corp")}, nil)

	recs := out[strings.Index(out, "## Recommendations"):]
	if !strings.Contains(recs, "- Globex") {
		t.Errorf("drifted entity missing from recommendations:\n%s", recs)
	}
	if strings.Contains(recs, "- Acme Corp") {
		t.Errorf("stable entity must not be recommended for review:\n%s", recs)
	}
}

func TestCompile_NoDriftRecommendsRegularMonitoring(t *testing.T) {
	out := Compile(runDate(), []EntityResult{stableResult("Acme Corp")}, nil)

	if !strings.Contains(out, "Continue regular monitoring.") {
		t.Errorf("expected monitoring statement:\n%s", out)
	}
}

func TestCompile_ErrorSummary(t *testing.T) {
	errors := []ledger.Record{
		{Kind: ledger.KindNetwork, Message: "fetch failed", Subject: "Globex"},
		{Kind: ledger.KindConfiguration, Message: "no entities configured"},
	}
	out := Compile(runDate(), nil, errors)

	if !strings.Contains(out, "- [network] Globex: fetch failed") {
		t.Errorf("network error missing:\n%s", out)
	}
	if !strings.Contains(out, "- [configuration] no entities configured") {
		t.Errorf("configuration error missing:\n%s", out)
	}
	if strings.Contains(out, "without errors") {
		t.Error("success statement must not appear when errors exist")
	}
}

func TestCompile_SuccessStatementWithoutErrors(t *testing.T) {
	out := Compile(runDate(), []EntityResult{stableResult("Acme Corp")}, nil)
	if !strings.Contains(out, "All entities were processed without errors.") {
		t.Errorf("success statement missing:\n%s", out)
	}
}

func TestFindings_NewEntityNamesMissingBaseline(t *testing.T) {
	res := EntityResult{
		Name:  "Acme Corp",
		URL:   "https://acme.test",
		Drift: &drift.Result{Classification: drift.ClassNewEntity, Threshold: 0.80},
	}
	got := Findings(res)
	if !strings.Contains(got, "No historical baseline was available") {
		t.Errorf("Findings = %q", got)
	}
}

func TestReport_Counts(t *testing.T) {
	r := Report{
		RunDate: runDate(),
		Results: []EntityResult{
			stableResult("A"),
			driftResult("B"),
			{Name: "C", Failed: true},
		},
	}
	processed, drifted, failed := r.Counts()
	if processed != 3 || drifted != 1 || failed != 1 {
		t.Errorf("Counts = %d/%d/%d, want 3/1/1", processed, drifted, failed)
	}
}
