package channel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/danmuck/sqlplusctl/internal/logging"
	"github.com/spf13/afero"
)

const defaultGracePeriod = 5 * time.Second

// LocalChannel runs on the controller itself.
type LocalChannel struct {
	FS afero.Fs
	// GracePeriod is the delay between SIGTERM and SIGKILL on cancellation.
	GracePeriod time.Duration
	// Environment is the inherited environment; os.Environ when nil.
	Environment map[string]string
}

// NewLocal returns a LocalChannel over the OS filesystem.
func NewLocal() *LocalChannel {
	return &LocalChannel{FS: afero.NewOsFs(), GracePeriod: defaultGracePeriod}
}

func (c *LocalChannel) Local() bool { return true }

func (c *LocalChannel) Environ(context.Context) (map[string]string, error) {
	if c.Environment != nil {
		return MergeEnv(c.Environment), nil
	}
	return ParseEnviron(os.Environ()), nil
}

func (c *LocalChannel) TempDir(context.Context) (string, error) {
	return os.TempDir(), nil
}

func (c *LocalChannel) ReadFile(_ context.Context, path string) ([]byte, error) {
	return afero.ReadFile(c.fs(), path)
}

func (c *LocalChannel) WriteFile(_ context.Context, path string, data []byte) error {
	if err := c.fs().MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(c.fs(), path, data, 0o600)
}

func (c *LocalChannel) Exists(_ context.Context, path string) (bool, error) {
	info, err := c.fs().Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (c *LocalChannel) Remove(_ context.Context, path string) error {
	return c.fs().Remove(path)
}

// Start launches cmd with os/exec. Cancelling ctx terminates the process
// group, escalating to SIGKILL after GracePeriod.
func (c *LocalChannel) Start(ctx context.Context, cmd Command) (Process, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	base, err := c.Environ(ctx)
	if err != nil {
		return nil, err
	}

	command := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	command.Dir = cmd.Dir
	command.Env = FormatEnviron(MergeEnv(base, cmd.Env))
	command.Stdout = cmd.Stdout
	command.Stderr = cmd.Stderr
	command.WaitDelay = c.gracePeriod()
	configureProcessGroup(command)

	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Name, err)
	}
	logger := logging.Component("channel.local")
	logger.Debug().Str("cmd", cmd.Name).Int("pid", command.Process.Pid).Msg("process started")
	return &localProcess{ctx: ctx, cmd: command}, nil
}

func (c *LocalChannel) fs() afero.Fs {
	if c.FS == nil {
		c.FS = afero.NewOsFs()
	}
	return c.FS
}

func (c *LocalChannel) gracePeriod() time.Duration {
	if c.GracePeriod <= 0 {
		return defaultGracePeriod
	}
	return c.GracePeriod
}

type localProcess struct {
	ctx context.Context
	cmd *exec.Cmd
}

func (p *localProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if p.ctx.Err() != nil {
		return -1, fmt.Errorf("process killed: %w", p.ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
