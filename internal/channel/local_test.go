package channel

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/sqlplusctl/internal/testutil/testlog"
	"github.com/spf13/afero"
)

func TestLocalFileOps(t *testing.T) {
	testlog.Start(t)
	ctx := context.Background()
	ch := &LocalChannel{FS: afero.NewMemMapFs()}

	path := "/tmp/work/temp-script-1.sql"
	if err := ch.WriteFile(ctx, path, []byte("select 1 from dual;\nexit;")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok, err := ch.Exists(ctx, path)
	if err != nil || !ok {
		t.Fatalf("expected file to exist: ok=%v err=%v", ok, err)
	}
	if ok, _ := ch.Exists(ctx, "/tmp/work"); ok {
		t.Fatalf("directories must not count as files")
	}
	data, err := ch.ReadFile(ctx, path)
	if err != nil || !strings.HasSuffix(string(data), "exit;") {
		t.Fatalf("unexpected read: %q err=%v", data, err)
	}
	if err := ch.Remove(ctx, path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok, _ := ch.Exists(ctx, path); ok {
		t.Fatalf("file still present after remove")
	}
}

func TestLocalEnvironOverride(t *testing.T) {
	ch := &LocalChannel{Environment: map[string]string{"OS": "Linux"}}
	env, err := ch.Environ(context.Background())
	if err != nil {
		t.Fatalf("environ: %v", err)
	}
	env["OS"] = "changed"
	if ch.Environment["OS"] != "Linux" {
		t.Fatalf("Environ must return a copy")
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestLocalStartReportsExitCode(t *testing.T) {
	testlog.Start(t)
	requireShell(t)

	var stdout bytes.Buffer
	ch := &LocalChannel{Environment: map[string]string{"GREETING": "base"}}
	proc, err := ch.Start(context.Background(), Command{
		Name:   "sh",
		Args:   []string{"-c", `echo "$GREETING $EXTRA"; exit 3`},
		Env:    map[string]string{"EXTRA": "overlay"},
		Stdout: &stdout,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	code, err := proc.Wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
	if strings.TrimSpace(stdout.String()) != "base overlay" {
		t.Fatalf("unexpected output: %q", stdout.String())
	}
}

func TestLocalStartCancel(t *testing.T) {
	testlog.Start(t)
	requireShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	ch := &LocalChannel{GracePeriod: time.Second}
	proc, err := ch.Start(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 30"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := proc.Wait()
		done <- err
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected cancellation error")
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("process did not stop after cancel")
	}
}

func TestLocalStartRejectsEmptyCommand(t *testing.T) {
	if _, err := (&LocalChannel{}).Start(context.Background(), Command{}); err == nil {
		t.Fatalf("expected validation error")
	}
}
