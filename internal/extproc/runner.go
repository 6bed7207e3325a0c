// Package extproc adapts external programs to the enumeration
// collaborators. Each call starts the configured program, writes one JSON
// request to its stdin, and reads one JSON response from its stdout.
package extproc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long a killed program may keep its pipes open.
const waitDelay = 2 * time.Second

// Runner starts one external program per request.
type Runner struct {
	Path string
	Args []string
	// Env entries are appended to the parent environment.
	Env []string
}

// NewRunner splits a configured command line on whitespace into a program
// and its arguments.
func NewRunner(command string) (Runner, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return Runner{}, fmt.Errorf("empty command")
	}
	return Runner{Path: fields[0], Args: fields[1:]}, nil
}

// Validate checks that the program can be found.
func (r Runner) Validate() error {
	if _, err := exec.LookPath(r.Path); err != nil {
		return fmt.Errorf("program not found at %q: %w", r.Path, err)
	}
	return nil
}

// Call runs the program with req encoded on stdin and decodes stdout into
// resp.
func (r Runner) Call(ctx context.Context, req, resp any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.Path, r.Args...)
	cmd.SysProcAttr = sessionAttr()
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s failed: %w\nstderr: %s", r.Path, err, strings.TrimSpace(stderr.String()))
	}
	if err := json.Unmarshal(stdout.Bytes(), resp); err != nil {
		return fmt.Errorf("failed to parse %s JSON output: %w\nraw output: %s", r.Path, err, stdout.String())
	}
	return nil
}
