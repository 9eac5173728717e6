// Package remote holds one persistent SSH connection to a remote host, with
// command execution over SSH sessions and file access over SFTP.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrClosed is returned by operations on a closed Client.
var ErrClosed = errors.New("remote session closed")

// ExitError is a remote command that ran and exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Stdout  string
	Stderr  string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("remote command exited %d: %s", e.Code, e.Stderr)
	}
	return fmt.Sprintf("remote command exited %d", e.Code)
}

// Config describes how to reach the host.
type Config struct {
	Host string
	Port int
	User string
	// KeyPath is a private key file; Passphrase decrypts it when set.
	KeyPath    string
	Passphrase string
	// KnownHosts enables host key checking against the given file.
	// Empty accepts any host key.
	KnownHosts string
	Timeout    time.Duration
}

// Addr returns host:port.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Client is a connected SSH client with an SFTP subsystem.
type Client struct {
	addr string
	ssh  *ssh.Client
	sftp *sftp.Client
}

// Dial connects and authenticates, then opens the SFTP subsystem.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	clientCfg, err := buildClientConfig(cfg)
	if err != nil {
		return nil, err
	}

	addr := cfg.Addr()
	dialer := &net.Dialer{Timeout: clientCfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("establishing SSH connection to %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("starting sftp on %s: %w", addr, err)
	}

	return &Client{addr: addr, ssh: client, sftp: sftpClient}, nil
}

func buildClientConfig(cfg Config) (*ssh.ClientConfig, error) {
	if cfg.User == "" {
		return nil, errors.New("ssh user not configured")
	}
	if cfg.KeyPath == "" {
		return nil, errors.New("ssh private key not configured")
	}

	keyData, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	var signer ssh.Signer
	if cfg.Passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(cfg.Passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(keyData)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing private key %s: %w", cfg.KeyPath, err)
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		hostKey, err = knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts: %w", err)
		}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}, nil
}

// Addr returns the address the client is connected to.
func (c *Client) Addr() string { return c.addr }

// Exec runs command in a new session and returns its stdout. A non-zero
// exit yields *ExitError; transport failures are returned wrapped.
// Cancelling ctx kills the remote command.
func (c *Client) Exec(ctx context.Context, command string) (string, error) {
	if c.ssh == nil {
		return "", ErrClosed
	}
	session, err := c.ssh.NewSession()
	if err != nil {
		return "", fmt.Errorf("opening session on %s: %w", c.addr, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExitError{
				Command: command,
				Code:    exitErr.ExitStatus(),
				Stdout:  stdout.String(),
				Stderr:  strings.TrimSpace(stderr.String()),
			}
		}
		return "", fmt.Errorf("running command on %s: %w", c.addr, err)
	}
	return stdout.String(), nil
}

// ReadFile returns the content of a remote file.
func (c *Client) ReadFile(_ context.Context, path string) ([]byte, error) {
	if c.sftp == nil {
		return nil, ErrClosed
	}
	f, err := c.sftp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// WriteFile creates or truncates a remote file with data.
func (c *Client) WriteFile(_ context.Context, path string, data []byte) error {
	if c.sftp == nil {
		return ErrClosed
	}
	f, err := c.sftp.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// GetFile copies a remote file to a local path.
func (c *Client) GetFile(_ context.Context, remotePath, localPath string) error {
	if c.sftp == nil {
		return ErrClosed
	}
	src, err := c.sftp.Open(remotePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", remotePath, err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localPath, err)
	}
	if _, err := src.WriteTo(dst); err != nil {
		dst.Close()
		return fmt.Errorf("downloading %s: %w", remotePath, err)
	}
	return dst.Close()
}

// PutFile copies a local file to a remote path.
func (c *Client) PutFile(_ context.Context, localPath, remotePath string) error {
	if c.sftp == nil {
		return ErrClosed
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := c.sftp.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("creating %s: %w", remotePath, err)
	}
	if _, err := dst.ReadFrom(src); err != nil {
		dst.Close()
		return fmt.Errorf("uploading %s: %w", localPath, err)
	}
	return dst.Close()
}

// Remove deletes a remote file.
func (c *Client) Remove(_ context.Context, path string) error {
	if c.sftp == nil {
		return ErrClosed
	}
	if err := c.sftp.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Close tears down SFTP and the SSH connection. Safe to call twice.
func (c *Client) Close() error {
	var errs []error
	if c.sftp != nil {
		errs = append(errs, c.sftp.Close())
		c.sftp = nil
	}
	if c.ssh != nil {
		errs = append(errs, c.ssh.Close())
		c.ssh = nil
	}
	return errors.Join(errs...)
}
