// Package proc runs external tools (compiler, linters) on behalf of the server.
package proc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrIO marks failures to spawn a tool or to read its output. A tool that ran
// and exited with a non-zero status is not an ErrIO.
var ErrIO = errors.New("process i/o failure")

// waitDelay bounds how long Wait keeps output pipes open after the process
// has been killed, so grandchildren holding the pipes cannot stall us.
const waitDelay = 2 * time.Second

const maxLineBytes = 1 << 20

// Command describes one invocation of an external executable.
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

func (c Command) prepare(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)
	return cmd
}

// Run spawns cmd with no standard input and hands every line of its merged
// stdout/stderr to sink, in the order the lines arrive, before reading the next
// one. It returns true when the process exits with status 0.
//
// Cancelling ctx kills the process (and its process group where supported).
func Run(ctx context.Context, c Command, sink func(line string)) (bool, error) {
	cmd := c.prepare(ctx)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false, fmt.Errorf("%w: stdout pipe for %s: %v", ErrIO, c.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return false, fmt.Errorf("%w: stderr pipe for %s: %v", ErrIO, c.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("%w: start %s: %v", ErrIO, c.Name, err)
	}

	lines := make(chan string)
	readErrs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go scanLines(stdout, lines, readErrs, &wg)
	go scanLines(stderr, lines, readErrs, &wg)
	go func() {
		wg.Wait()
		close(lines)
		close(readErrs)
	}()

	for line := range lines {
		if sink != nil {
			sink(line)
		}
	}
	var readErr error
	for err := range readErrs {
		if readErr == nil {
			readErr = err
		}
	}

	waitErr := cmd.Wait()
	if readErr != nil && ctx.Err() == nil {
		return false, fmt.Errorf("%w: read output of %s: %v", ErrIO, c.Name, readErr)
	}
	if waitErr == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("%w: wait %s: %v", ErrIO, c.Name, waitErr)
}

func scanLines(r io.Reader, out chan<- string, errs chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		errs <- err
		// keep the pipe empty so the tool can still exit
		_, _ = io.Copy(io.Discard, r)
	}
}

// Pipe runs cmd once, writes input to its standard input, and returns
// everything it printed on standard output. Standard error is discarded and a
// non-zero exit status is not treated as a failure: linters routinely exit 1
// when they found something.
func Pipe(ctx context.Context, c Command, input string) ([]byte, error) {
	cmd := c.prepare(ctx)
	cmd.Stdin = strings.NewReader(input)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrIO, c.Name, err)
	}
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: wait %s: %v", ErrIO, c.Name, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return stdout.Bytes(), nil
}
