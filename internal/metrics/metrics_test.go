package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutcome(t *testing.T) {
	cases := []struct {
		err  error
		code int
		want string
	}{
		{nil, 0, OutcomeSuccess},
		{errors.New("sqlplus failed"), 3, OutcomeExitCode},
		{errors.New("home missing"), -1, OutcomeFailed},
		{fmt.Errorf("run: %w", context.Canceled), -1, OutcomeCancelled},
	}
	for _, tc := range cases {
		if got := Outcome(tc.err, tc.code); got != tc.want {
			t.Fatalf("Outcome(%v, %d) = %q, want %q", tc.err, tc.code, got, tc.want)
		}
	}
}

func TestRecordRun(t *testing.T) {
	r := NewRecorder()
	r.RecordRun("local", OutcomeSuccess, 0, 2*time.Second)
	r.RecordRun("local", OutcomeExitCode, 5, time.Second)
	r.RecordRun("local", OutcomeFailed, -1, time.Millisecond)

	if got := testutil.ToFloat64(r.runs.WithLabelValues("local", OutcomeSuccess)); got != 1 {
		t.Fatalf("success count = %v", got)
	}
	if got := testutil.ToFloat64(r.lastExit.WithLabelValues("local")); got != 5 {
		t.Fatalf("a run without a process must keep the last exit code, got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.RecordRun("ssh", OutcomeSuccess, 0, time.Second)

	path := filepath.Join(t.TempDir(), "sqlplusctl.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `sqlplusctl_run_total{outcome="success",target="ssh"} 1`) {
		t.Fatalf("unexpected textfile:\n%s", data)
	}
}
