package buildexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// tailLines is how many trailing output lines an Outcome retains for error reports.
const tailLines = 20

// Command describes one external invocation.
type Command struct {
	Step   string
	Binary string
	Args   []string
	Dir    string
	Env    []string
}

// Outcome is the structured result of running a Command.
type Outcome struct {
	Step     string
	Binary   string
	Args     []string
	Dir      string
	Started  time.Time
	Duration time.Duration
	ExitCode int
	Cause    error
	Tail     []string
}

// OK reports whether the command ran and exited zero.
func (o Outcome) OK() bool {
	return o.Cause == nil && o.ExitCode == 0
}

// Err returns a *StepError for failed outcomes and nil otherwise.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return &StepError{Outcome: o}
}

// CommandLine renders the invocation for logs and error messages.
func (o Outcome) CommandLine() string {
	parts := make([]string, 0, len(o.Args)+1)
	parts = append(parts, o.Binary)
	for _, arg := range o.Args {
		if strings.ContainsAny(arg, " \t\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command, onLine func(string)) Outcome
}

// NewExecutor returns the subprocess-backed executor.
func NewExecutor() Executor {
	return commandExecutor{}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, c Command, onLine func(string)) Outcome {
	outcome := Outcome{
		Step:    c.Step,
		Binary:  c.Binary,
		Args:    append([]string(nil), c.Args...),
		Dir:     c.Dir,
		Started: time.Now(),
	}
	defer func() {
		outcome.Duration = time.Since(outcome.Started)
	}()

	cmd := exec.CommandContext(ctx, c.Binary, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		outcome.Cause = fmt.Errorf("stdout pipe: %w", err)
		return outcome
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		outcome.Cause = fmt.Errorf("stderr pipe: %w", err)
		return outcome
	}
	if err := cmd.Start(); err != nil {
		outcome.Cause = fmt.Errorf("start command: %w", err)
		return outcome
	}

	tail := newTailBuffer(tailLines)
	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail.add(line)
			if onLine != nil {
				onLine(line)
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	outcome.Tail = tail.lines()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		outcome.Cause = fmt.Errorf("scan output: %w", scanErr)
		return outcome
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 && ctx.Err() == nil {
			outcome.ExitCode = exitErr.ExitCode()
			return outcome
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome.Cause = ctxErr
		} else {
			outcome.Cause = fmt.Errorf("wait command: %w", err)
		}
		outcome.ExitCode = -1
	}
	return outcome
}

type tailBuffer struct {
	mu    sync.Mutex
	max   int
	items []string
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, line)
	if len(t.items) > t.max {
		t.items = t.items[len(t.items)-t.max:]
	}
}

func (t *tailBuffer) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.items...)
}
