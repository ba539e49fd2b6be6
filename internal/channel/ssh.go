package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/sqlplusctl/internal/logging"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig describes a remote worker reachable over SSH.
type SSHConfig struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	Passphrase                  []byte
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
}

// SSHChannel runs on a remote worker with a POSIX shell. One client
// connection is shared by every session of a run.
type SSHChannel struct {
	cfg SSHConfig

	mu     sync.Mutex
	client *ssh.Client
	closed bool
}

func NewSSH(cfg SSHConfig) *SSHChannel {
	return &SSHChannel{cfg: cfg}
}

func (c *SSHChannel) Local() bool { return false }

// Close releases the shared connection.
func (c *SSHChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *SSHChannel) Environ(ctx context.Context) (map[string]string, error) {
	out, err := c.output(ctx, "env", nil)
	if err != nil {
		return nil, err
	}
	return ParseEnviron(strings.Split(string(out), "\n")), nil
}

func (c *SSHChannel) TempDir(ctx context.Context) (string, error) {
	out, err := c.output(ctx, `printf '%s' "${TMPDIR:-/tmp}"`, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *SSHChannel) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return c.output(ctx, "cat "+shellEscape(path), nil)
}

func (c *SSHChannel) WriteFile(ctx context.Context, path string, data []byte) error {
	_, err := c.output(ctx, "umask 077 && cat > "+shellEscape(path), bytes.NewReader(data))
	return err
}

func (c *SSHChannel) Exists(ctx context.Context, path string) (bool, error) {
	_, err := c.output(ctx, "test -f "+shellEscape(path), nil)
	if err == nil {
		return true, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitStatus() == 1 {
		return false, nil
	}
	return false, err
}

func (c *SSHChannel) Remove(ctx context.Context, path string) error {
	_, err := c.output(ctx, "rm -f "+shellEscape(path), nil)
	return err
}

// Start runs cmd through the remote shell. Environment entries are passed with
// env(1) since most sshd configurations reject session setenv requests.
func (c *SSHChannel) Start(ctx context.Context, cmd Command) (Process, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	session, err := client.NewSession()
	if err != nil {
		return nil, err
	}
	session.Stdout = cmd.Stdout
	session.Stderr = cmd.Stderr

	if err := session.Start(remoteCommand(cmd)); err != nil {
		session.Close()
		return nil, fmt.Errorf("start %s: %w", cmd.Name, err)
	}
	logger := logging.Component("channel.ssh")
	logger.Debug().Str("host", c.cfg.Host).Str("cmd", cmd.Name).Msg("remote process started")
	return newSSHProcess(ctx, session), nil
}

func (c *SSHChannel) output(ctx context.Context, line string, stdin io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	session, err := client.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if stdin != nil {
		session.Stdin = stdin
	}
	if err := session.Run(line); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, msg)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

func (c *SSHChannel) connect(ctx context.Context) (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrNotConnected
	}
	if c.client != nil {
		return c.client, nil
	}
	client, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

func (c *SSHChannel) dial(ctx context.Context) (*ssh.Client, error) {
	address, err := c.address()
	if err != nil {
		return nil, err
	}

	config, err := c.clientConfig()
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return ssh.NewClient(clientConn, chans, reqs), nil
}

func (c *SSHChannel) address() (string, error) {
	host := strings.TrimSpace(c.cfg.Host)
	if host == "" {
		return "", fmt.Errorf("ssh host is required")
	}

	if c.cfg.Port != "" {
		return net.JoinHostPort(host, c.cfg.Port), nil
	}

	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}

	return net.JoinHostPort(host, "22"), nil
}

func (c *SSHChannel) clientConfig() (*ssh.ClientConfig, error) {
	if c.cfg.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}

	signer, err := c.signer()
	if err != nil {
		return nil, err
	}

	var hostKeyCallback ssh.HostKeyCallback
	if c.cfg.InsecureSkipHostKeyChecking {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		callback, err := c.knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = callback
	}

	return &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.cfg.Timeout,
	}, nil
}

func (c *SSHChannel) signer() (ssh.Signer, error) {
	if c.cfg.KeyPath == "" {
		return nil, fmt.Errorf("ssh key path is required")
	}

	privateKey, err := os.ReadFile(c.cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}

	if len(c.cfg.Passphrase) > 0 {
		return ssh.ParsePrivateKeyWithPassphrase(privateKey, c.cfg.Passphrase)
	}

	return ssh.ParsePrivateKey(privateKey)
}

func (c *SSHChannel) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(c.cfg.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("known hosts path not set and home dir unavailable")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	return knownhosts.New(path)
}

type sshProcess struct {
	session *ssh.Session
	ctx     context.Context
	done    chan struct{}
}

// newSSHProcess watches ctx and signals the remote process on cancellation.
func newSSHProcess(ctx context.Context, session *ssh.Session) *sshProcess {
	p := &sshProcess{session: session, ctx: ctx, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Signal(ssh.SIGTERM)
			_ = session.Close()
		case <-p.done:
		}
	}()
	return p
}

func (p *sshProcess) Wait() (int, error) {
	err := p.session.Wait()
	close(p.done)
	p.session.Close()

	if p.ctx.Err() != nil {
		return -1, fmt.Errorf("remote process killed: %w", p.ctx.Err())
	}
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return -1, err
}

// remoteCommand renders cmd as one shell line: cd dir && env K=V ... name args.
func remoteCommand(cmd Command) string {
	var builder strings.Builder
	if cmd.Dir != "" {
		builder.WriteString("cd ")
		builder.WriteString(shellEscape(cmd.Dir))
		builder.WriteString(" && ")
	}
	if len(cmd.Env) > 0 {
		builder.WriteString("env")
		for _, entry := range FormatEnviron(cmd.Env) {
			builder.WriteByte(' ')
			builder.WriteString(shellEscape(entry))
		}
		builder.WriteByte(' ')
	}
	builder.WriteString(joinCommand(cmd.Name, cmd.Args))
	return builder.String()
}

func joinCommand(cmd string, args []string) string {
	if len(args) == 0 {
		return shellEscape(cmd)
	}

	var builder strings.Builder
	builder.WriteString(shellEscape(cmd))
	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(shellEscape(arg))
	}

	return builder.String()
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}

	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
