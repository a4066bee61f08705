package producer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/stellarlinkco/chat-eval/internal/retry"
)

// SubprocessProducer spawns an interactive chat command per question, feeds
// the question followed by "exit" on stdin, and collects everything the
// process prints that is not a prompt marker.
type SubprocessProducer struct {
	command string
	args    []string
	dir     string
	timeout time.Duration
	caller  *retry.Caller
}

func NewSubprocess(command string, dir string, timeout time.Duration, caller *retry.Caller) (*SubprocessProducer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("producer: empty command")
	}
	if caller == nil {
		return nil, errors.New("producer: nil retry caller")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SubprocessProducer{
		command: fields[0],
		args:    fields[1:],
		dir:     dir,
		timeout: timeout,
		caller:  caller,
	}, nil
}

func (p *SubprocessProducer) Name() string {
	return "subprocess"
}

func (p *SubprocessProducer) Produce(ctx context.Context, question string) (string, int, error) {
	if p == nil {
		return "", 0, errors.New("producer: nil producer")
	}
	return p.caller.Call(ctx, "subprocess", func(ctx context.Context) (string, error) {
		return p.run(ctx, question)
	})
}

func (p *SubprocessProducer) run(ctx context.Context, question string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.command, p.args...)
	cmd.Dir = p.dir
	cmd.Stdin = strings.NewReader(question + "\nexit\n")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return "", fmt.Errorf("producer: %s timed out after %v", p.command, p.timeout)
		}
		return "", fmt.Errorf("producer: run %q: %w: %s", p.command, err, truncate(stderr.String(), 200))
	}

	return extractAnswer(stdout.String()), nil
}

// Health verifies the command exists on PATH without invoking it.
func (p *SubprocessProducer) Health(ctx context.Context) error {
	if p == nil {
		return errors.New("producer: nil producer")
	}
	if _, err := exec.LookPath(p.command); err != nil {
		return fmt.Errorf("producer: command %q not found: %w", p.command, err)
	}
	return nil
}

// extractAnswer drops interactive prompt lines (those starting with ">") and
// joins the rest.
func extractAnswer(output string) string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ">") {
			continue
		}
		lines = append(lines, trimmed)
	}
	return strings.Join(lines, "\n")
}
