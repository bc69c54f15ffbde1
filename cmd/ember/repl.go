package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"

	"github.com/wudi/ember/driver"
	"github.com/wudi/ember/econtext"
	"github.com/wudi/ember/value"
	"github.com/wudi/ember/vm"
)

// runREPL drops into an interactive, readline-backed shell that steps one
// driver.Execution one suspend point (one Step/Resume call) at a time and,
// on the `stack` command, reports the operand-stack and frame depths
// (§6's embedding CLI), the way the teacher's own
// `hey -a` interactive shell re-prompts after every line
// (_examples/wudi-hey/cmd/hey/main.go's runInteractiveShell), generalized
// from "parse and run one REPL line" to "advance one suspend point of a
// fixed demo program".
func runREPL(rc *econtext.RuntimeContext, programName string, budget int) error {
	d, err := findDemo(programName)
	if err != nil {
		return err
	}

	rl, err := readline.New("ember> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "ember REPL — stepping %q (%s)\n", d.name, d.description)
	fmt.Fprintln(rl.Stdout(), "commands: step (s), run (r), stack, quit (q)")

	exec, steps := newStepper(rc, d)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(line) {
		case "step", "s":
			if err := steps.advance(rl); err != nil {
				fmt.Fprintf(rl.Stdout(), "error: %v\n", err)
			}
		case "run", "r":
			result, err := exec.Complete()
			if err != nil {
				fmt.Fprintf(rl.Stdout(), "error: %v\n", err)
				continue
			}
			fmt.Fprintf(rl.Stdout(), "=> %s\n", formatValue(result))
		case "stack":
			fmt.Fprintf(rl.Stdout(), "stack depth=%d frame depth=%d\n", exec.StackDepth(), exec.FrameDepth())
		case "quit", "q", "exit":
			return nil
		case "":
			// ignore blank lines
		default:
			fmt.Fprintf(rl.Stdout(), "unknown command %q\n", line)
		}
		if exec.Done() {
			fmt.Fprintf(rl.Stdout(), "entrypoint finished after %s instruction-level suspend point(s)\n",
				humanize.Comma(int64(steps.count)))
			exec, steps = newStepper(rc, d)
		}
		if steps.count > budget {
			fmt.Fprintln(rl.Stdout(), "instruction budget exceeded, resetting")
			exec, steps = newStepper(rc, d)
		}
	}
}

// stepper tracks how many Step/Resume calls a REPL session has driven, so
// the instruction-budget manifest setting (§2) has something to enforce.
type stepper struct {
	exec    *driver.Execution
	count   int
	pending value.Value // fed into the next Resume call
}

func newStepper(rc *econtext.RuntimeContext, d *demo) (*driver.Execution, *stepper) {
	u, hash, err := d.build()
	if err != nil {
		// demo builders only fail on programmer error (a duplicate
		// declared path, an unmarked label); every built-in demo is
		// exercised by this package's own tests, so this is unreachable
		// in practice.
		panic(err)
	}
	exec := driver.New(u, rc, hash, nil)
	return exec, &stepper{exec: exec, pending: value.Empty()}
}

// advance drives exec one suspend point further: the first call runs the
// entrypoint up to its first pause, every later call resumes it with
// whatever was resolved (or Empty) at the previous suspend (§4.7
// step/resume). An Await suspend is resolved immediately so the next
// advance call can feed its result straight back in — the REPL still shows
// each intermediate suspend, it just does not make the user type the
// resolved value in by hand.
func (s *stepper) advance(rl *readline.Instance) error {
	if s.exec.Done() {
		fmt.Fprintln(rl.Stdout(), "entrypoint already finished; issue a command to reset")
		return nil
	}
	var (
		result  value.Value
		suspend *vm.Suspend
		done    bool
		err     error
	)
	if s.count == 0 {
		result, suspend, done, err = s.exec.Step()
	} else {
		resumeVal := s.pending
		s.pending = value.Empty()
		result, suspend, done, err = s.exec.Resume(resumeVal)
	}
	s.count++
	if err != nil {
		return err
	}
	if done {
		fmt.Fprintf(rl.Stdout(), "=> %s\n", formatValue(result))
		return nil
	}
	fmt.Fprintf(rl.Stdout(), "suspended: %s", suspend.Reason)
	switch suspend.Reason {
	case vm.SuspendAwait:
		resolved, rerr := vm.ResolveFuture(suspend.Value)
		if rerr != nil {
			return rerr
		}
		fmt.Fprintf(rl.Stdout(), " (resolved to %s, feeding it back in on next step)\n", formatValue(resolved))
		s.pending = resolved
	case vm.SuspendSelect:
		idx, resolved, rerr := firstCandidate(suspend.Candidates)
		if rerr != nil {
			return rerr
		}
		fmt.Fprintf(rl.Stdout(), " (branch %d resolved to %s)\n", idx, formatValue(resolved))
		s.pending = value.NewTupleValue([]value.Value{value.Integer(int64(idx)), resolved})
	default:
		fmt.Fprintln(rl.Stdout())
	}
	return nil
}

func firstCandidate(candidates []value.Value) (int, value.Value, error) {
	resolved, err := vm.ResolveFuture(candidates[0])
	return 0, resolved, err
}
