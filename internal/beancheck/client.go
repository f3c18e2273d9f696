// Package beancheck invokes the external Python validator and decodes its
// output. All beancount semantics (balancing, amount inference, includes)
// live in the script; this package only owns the subprocess and the wire
// format.
package beancheck

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

type Client struct {
	python    string
	script    string
	timeout   time.Duration
	available bool
}

// NewClient builds a client for `python script mainFile [--payeeNarration]`.
func NewClient(python, script string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		python:  python,
		script:  script,
		timeout: timeout,
	}
	c.available = c.checkAvailable()
	return c
}

func (c *Client) Available() bool {
	return c.available
}

// Check runs the validator against mainFile and decodes the report. The call
// blocks until the subprocess exits; callers that want the asynchronous mode
// run it from a goroutine.
func (c *Client) Check(ctx context.Context, mainFile string, payeeNarration bool) (Report, error) {
	if !c.available {
		return Report{}, fmt.Errorf("python not available at path: %s", c.python)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{c.script, mainFile}
	if payeeNarration {
		args = append(args, "--payeeNarration")
	}

	cmd := exec.CommandContext(ctx, c.python, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Report{}, fmt.Errorf("validator timed out after %v", c.timeout)
		}
		return Report{}, fmt.Errorf("validator failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	return DecodeReport(&stdout)
}

func (c *Client) checkAvailable() bool {
	cmd := exec.Command(c.python, "--version")
	return cmd.Run() == nil
}
