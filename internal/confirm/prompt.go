package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"lpdeposit/internal/deposit"
	"lpdeposit/internal/lifecycle"
)

// ErrClosed is returned by Confirm after Close.
var ErrClosed = errors.New("prompt closed")

// Prompt asks the operator on a terminal. One goroutine reads input, a line
// per question, so a cancelled question never strands a reader; its pending
// line is handed to the next question instead.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer

	mu       sync.Mutex
	started  bool
	inFlight bool
	err      error

	requests  chan struct{}
	lines     chan answer
	done      chan struct{}
	closeOnce sync.Once
}

type answer struct {
	line string
	err  error
}

// NewPrompt creates a prompt reading answers from in and writing to out.
// Call Close when done with it.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{
		in:       bufio.NewReader(in),
		out:      out,
		requests: make(chan struct{}),
		lines:    make(chan answer, 1),
		done:     make(chan struct{}),
	}
}

// Confirm prints the deposit summary and waits for a y/N answer.
func (p *Prompt) Confirm(ctx context.Context, summary lifecycle.Summary) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return false, p.err
	}
	if !p.started {
		p.started = true
		go p.readLoop()
	}

	fmt.Fprintf(p.out, "Pool:           %s\n", summary.PoolID)
	fmt.Fprintf(p.out, "Shares out:     %s\n", deposit.FormatAmount(summary.TargetShares))
	fmt.Fprintf(p.out, "Max %s: %s\n", shortID(summary.AssetA), deposit.FormatAmount(summary.AssetAAmount))
	fmt.Fprintf(p.out, "Max %s: %s\n", shortID(summary.AssetB), deposit.FormatAmount(summary.AssetBAmount))
	fmt.Fprintf(p.out, "Fee:            %d (resource %d)\n", summary.Fee, summary.ResourceFee)
	fmt.Fprint(p.out, "Submit transaction? [y/N]: ")

	if !p.inFlight {
		select {
		case p.requests <- struct{}{}:
			p.inFlight = true
		case <-p.done:
			return false, ErrClosed
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-p.lines:
		p.inFlight = false
		if a.err != nil {
			p.err = fmt.Errorf("read answer: %w", a.err)
			if a.err != io.EOF || a.line == "" {
				return false, p.err
			}
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// Close stops the reader. A read already waiting on input ends when the
// input yields a line or fails.
func (p *Prompt) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *Prompt) readLoop() {
	for {
		select {
		case <-p.done:
			return
		case <-p.requests:
		}
		line, err := p.in.ReadString('\n')
		p.lines <- answer{line: line, err: err}
		if err != nil {
			return
		}
	}
}

func shortID(id string) string {
	if len(id) <= 10 {
		return fmt.Sprintf("%-10s", id)
	}
	return id[:4] + ".." + id[len(id)-4:]
}
