// Package docker wraps the docker CLI for the local side of a migration:
// container discovery and role classification, compose lifecycle, the exec
// bridge into the application container and the post-bring-up readiness
// poll.
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Common errors
var (
	ErrNoDaemon          = errors.New("docker daemon not reachable")
	ErrNoSuchContainer   = errors.New("no such container")
	ErrContainerNotFound = errors.New("no running container for role")
)

// Runner executes the docker binary. dir is the working directory
// (empty for the current one). It returns trimmed stdout.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// CommandError is a docker invocation that exited non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("docker %s: exit %d: %s", e.Args[0], e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("docker %s: exit %d", e.Args[0], e.ExitCode)
}

type cliRunner struct {
	binary string
}

func (r cliRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return strings.TrimSpace(stdout.String()), wrapError(err, stderr.String(), args)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// wrapError maps docker failures onto the package errors.
func wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)

	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: docker binary not found", ErrNoDaemon)
	}
	if strings.Contains(stderr, "Cannot connect to the Docker daemon") ||
		strings.Contains(stderr, "error during connect") {
		return fmt.Errorf("%w: %s", ErrNoDaemon, stderr)
	}
	if strings.Contains(stderr, "No such container") {
		return fmt.Errorf("%w: %s", ErrNoSuchContainer, stderr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{Args: args, ExitCode: exitErr.ExitCode(), Stderr: stderr}
	}
	return fmt.Errorf("docker %s: %w", args[0], err)
}

// Client controls local containers.
type Client struct {
	runner Runner
}

// New returns a Client using the docker binary on PATH.
func New() *Client {
	return &Client{runner: cliRunner{binary: "docker"}}
}

// NewWithRunner returns a Client driven by r.
func NewWithRunner(r Runner) *Client {
	return &Client{runner: r}
}

// psEntry is one line of `docker ps --format '{{json .}}'`.
type psEntry struct {
	ID     string `json:"ID"`
	Names  string `json:"Names"`
	Image  string `json:"Image"`
	State  string `json:"State"`
	Labels string `json:"Labels"`
}

// Running lists running containers.
func (c *Client) Running(ctx context.Context) (Containers, error) {
	out, err := c.runner.Run(ctx, "", "ps", "--no-trunc", "--format", "{{json .}}")
	if err != nil {
		return nil, err
	}
	return parsePS(out)
}

func parsePS(out string) (Containers, error) {
	var result Containers
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e psEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("parsing docker ps output: %w", err)
		}
		name, _, _ := strings.Cut(e.Names, ",")
		state := e.State
		if state == "" {
			// Older engines omit State; ps without -a only lists running ones.
			state = StateRunning
		}
		result = append(result, Container{
			ID:     e.ID,
			Name:   strings.TrimPrefix(name, "/"),
			Image:  e.Image,
			State:  state,
			Labels: parseLabels(e.Labels),
		})
	}
	return result, nil
}

func parseLabels(s string) map[string]string {
	labels := make(map[string]string)
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		labels[k] = v
	}
	return labels
}

// Networks returns the networks a container is attached to, in the order
// docker reports them.
func (c *Client) Networks(ctx context.Context, container string) ([]Network, error) {
	out, err := c.runner.Run(ctx, "", "inspect", "--format", "{{json .NetworkSettings.Networks}}", container)
	if err != nil {
		return nil, err
	}
	return decodeNetworks([]byte(out))
}

// decodeNetworks walks the JSON object token by token so the attach order
// survives (a map would lose it).
func decodeNetworks(data []byte) ([]Network, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing networks: %w", err)
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("parsing networks: unexpected %v", tok)
	}

	var nets []Network
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing networks: %w", err)
		}
		name, _ := keyTok.(string)
		var ep struct {
			IPAddress string `json:"IPAddress"`
		}
		if err := dec.Decode(&ep); err != nil {
			return nil, fmt.Errorf("parsing network %s: %w", name, err)
		}
		nets = append(nets, Network{Name: name, IPAddress: ep.IPAddress})
	}
	return nets, nil
}

// DatabaseAddress resolves the first attached-network address of the
// project's running database container.
func (c *Client) DatabaseAddress(ctx context.Context, project string) (string, error) {
	running, err := c.Running(ctx)
	if err != nil {
		return "", err
	}
	db, ok := running.ForProject(project).Database()
	if !ok {
		return "", fmt.Errorf("%w: database (%s) in project %s", ErrContainerNotFound, DatabaseInfix, project)
	}
	return c.containerAddress(ctx, db)
}

func (c *Client) containerAddress(ctx context.Context, ct Container) (string, error) {
	nets, err := c.Networks(ctx, ct.Name)
	if err != nil {
		return "", err
	}
	if len(nets) == 0 || nets[0].IPAddress == "" {
		return "", fmt.Errorf("container %s has no network address", ct.Name)
	}
	return nets[0].IPAddress, nil
}

// Stop stops the given containers. An empty set is a no-op.
func (c *Client) Stop(ctx context.Context, cs Containers) error {
	if len(cs) == 0 {
		return nil
	}
	_, err := c.runner.Run(ctx, "", append([]string{"stop"}, cs.Names()...)...)
	return err
}

// ForceRemove deletes the given containers, stopping them if needed.
func (c *Client) ForceRemove(ctx context.Context, cs Containers) error {
	if len(cs) == 0 {
		return nil
	}
	_, err := c.runner.Run(ctx, "", append([]string{"rm", "-f"}, cs.Names()...)...)
	return err
}

// ComposeUp starts the stack declared in dir, detached.
func (c *Client) ComposeUp(ctx context.Context, dir string) error {
	_, err := c.runner.Run(ctx, dir, "compose", "up", "-d")
	return err
}

// ComposeDown stops and removes the stack declared in dir.
func (c *Client) ComposeDown(ctx context.Context, dir string) error {
	_, err := c.runner.Run(ctx, dir, "compose", "down")
	return err
}

// Exec runs script with bash inside container and returns its stdout.
func (c *Client) Exec(ctx context.Context, container, script string) (string, error) {
	return c.runner.Run(ctx, "", "exec", container, "bash", "-c", script)
}
