package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/danmuck/sqlplusctl/internal/channel"
	"github.com/spf13/afero"
)

// fakeChannel runs nothing. Started commands are recorded and answered with
// the configured exit codes, in order.
type fakeChannel struct {
	mu      sync.Mutex
	local   bool
	fs      afero.Fs
	env     map[string]string
	codes   []int
	output  string
	started []channel.Command
	// scripts holds the @script file content seen at launch time.
	scripts   []string
	startErr  error
	removeErr error
	removed   []string
	exists    int
}

func newFakeChannel(local bool, fs afero.Fs) *fakeChannel {
	return &fakeChannel{local: local, fs: fs, env: map[string]string{}}
}

func (f *fakeChannel) Local() bool { return f.local }

func (f *fakeChannel) Environ(context.Context) (map[string]string, error) {
	return channel.MergeEnv(f.env), nil
}

func (f *fakeChannel) TempDir(context.Context) (string, error) { return "/tmp", nil }

func (f *fakeChannel) ReadFile(_ context.Context, path string) ([]byte, error) {
	return afero.ReadFile(f.fs, path)
}

func (f *fakeChannel) WriteFile(_ context.Context, path string, data []byte) error {
	if err := f.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(f.fs, path, data, 0o600)
}

func (f *fakeChannel) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	f.exists++
	f.mu.Unlock()
	return afero.Exists(f.fs, path)
}

func (f *fakeChannel) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	f.removed = append(f.removed, path)
	f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.fs.Remove(path)
}

func (f *fakeChannel) Start(_ context.Context, cmd channel.Command) (channel.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, cmd)

	var content string
	if n := len(cmd.Args); n > 0 && len(cmd.Args[n-1]) > 1 && cmd.Args[n-1][0] == '@' {
		data, err := afero.ReadFile(f.fs, cmd.Args[n-1][1:])
		if err == nil {
			content = string(data)
		}
	}
	f.scripts = append(f.scripts, content)

	code := 0
	if len(f.codes) > 0 {
		code, f.codes = f.codes[0], f.codes[1:]
	}
	if f.output != "" && cmd.Stdout != nil {
		fmt.Fprint(cmd.Stdout, f.output)
	}
	return fakeProcess{code: code}, nil
}

func (f *fakeChannel) startedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

type fakeProcess struct {
	code int
	err  error
}

func (p fakeProcess) Wait() (int, error) { return p.code, p.err }

// probeFs counts every lookup against the controller filesystem.
type probeFs struct {
	afero.Fs
	mu    sync.Mutex
	calls []string
}

func (p *probeFs) record(name string) {
	p.mu.Lock()
	p.calls = append(p.calls, name)
	p.mu.Unlock()
}

func (p *probeFs) Open(name string) (afero.File, error) {
	p.record(name)
	return p.Fs.Open(name)
}

func (p *probeFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	p.record(name)
	return p.Fs.OpenFile(name, flag, perm)
}

func (p *probeFs) Stat(name string) (os.FileInfo, error) {
	p.record(name)
	return p.Fs.Stat(name)
}

func mustWrite(t *testing.T, fs afero.Fs, path, body string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, []byte(body), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

var errBoom = errors.New("boom")
