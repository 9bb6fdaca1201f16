package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"fleetops/internal/modules/dispatch"
	"fleetops/internal/platform"
)

func TestUsageErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := realMain(nil, &out, &errOut); code != 2 || !strings.Contains(errOut.String(), "cancel-window") {
		t.Fatalf("no args: code=%d stderr=%s", code, errOut.String())
	}
	errOut.Reset()
	if code := realMain([]string{"launch"}, &out, &errOut); code != 2 || !strings.Contains(errOut.String(), `unknown command "launch"`) {
		t.Fatalf("unknown command: code=%d stderr=%s", code, errOut.String())
	}
}

func TestParseWindow(t *testing.T) {
	wf, tr, err := parseWindow("reassign-window", []string{"-driver", "7", "-to", "9", "-date", "2026-03-01", "-range", "8:00-10:30", "-dry-run"}, true)
	if err != nil {
		t.Fatalf("parseWindow: %v", err)
	}
	if wf.driver != 7 || wf.target != 9 || !wf.dryRun || tr.Start != "08:00" || tr.End != "10:30" {
		t.Fatalf("parsed %+v %+v", wf, tr)
	}
	if wf.reason != dispatch.DefaultCancelReason {
		t.Fatalf("reason default = %q", wf.reason)
	}

	if _, _, err := parseWindow("reassign-window", []string{"-driver", "7", "-date", "2026-03-01", "-range", "8:00-10:30"}, true); !errors.Is(err, errUsage) {
		t.Fatalf("missing -to: %v", err)
	}
	if _, _, err := parseWindow("cancel-window", []string{"-driver", "x", "-date", "2026-03-01", "-range", "08:00-09:00"}, false); err == nil {
		t.Fatal("non-numeric driver accepted")
	}
}

func TestReportOutcomesFailsOnAnyFailure(t *testing.T) {
	outcomes := []dispatch.Outcome{
		{RideID: 1, Kind: dispatch.KindCancel, Status: dispatch.OutcomeSuccess},
		{RideID: 2, Kind: dispatch.KindCancel, Status: dispatch.OutcomeFailure, ErrorKind: platform.KindStateMismatch, Detail: "wrong status"},
	}
	var buf bytes.Buffer
	err := reportOutcomes(&buf, outcomes, dispatch.Summarize(outcomes))
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(buf.String(), "2 total, 1 succeeded, 1 failed (1 state mismatch, 0 auth)") {
		t.Fatalf("output = %s", buf.String())
	}

	buf.Reset()
	if err := reportOutcomes(&buf, outcomes[:1], dispatch.Summarize(outcomes[:1])); err != nil {
		t.Fatalf("all succeeded: %v", err)
	}
}
