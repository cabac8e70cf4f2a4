/*
Package privshell runs shell commands as root through a single elevated shell.

Elevation prompts (pkexec, sudo and friends) are slow and annoying when they
appear for every command. Instead, one interactive shell is started through the
elevation launcher when the program starts, and every privileged command is
written to its stdin. The shell lives until the program exits.

# Protocol

The shell has no message framing, only a stream of lines. Each command is sent
as a single line with an echo of a sentinel appended:

	<command>; echo <sentinel>\n

Output is then read line by line until a line consisting of exactly the
sentinel. Everything before it, each line terminated with "\n", is the result.
The sentinel line itself is never part of a result.

The sentinel defaults to a random per-session token, which makes it
vanishingly unlikely that legitimate output contains it. If it does, the result
is truncated and the next command reads the leftovers. Nothing detects that.

# Concurrency

There is one pipe pair and many callers. [Shell.Run] holds a single mutex for
the whole write-then-read cycle, so one command's output can never end up in
another command's result. There is no timeout: a command that never finishes
blocks its caller, and everyone queued behind it, forever.
*/
package privshell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pcekm/cocotap/internal/util"
)

const (
	// SentinelPrefix starts every generated sentinel.
	SentinelPrefix = "END_OF_CMD"
)

// Options contains options for starting a shell.
type Options struct {
	// Elevator is the program that prompts for privileges and runs Shell.
	// Defaults to "pkexec". Set NoElevator to run Shell directly.
	Elevator string

	// NoElevator runs Shell without an elevation launcher. This is for
	// programs that are already root, and for tests.
	NoElevator bool

	// Shell is the interactive shell to run. Defaults to "bash".
	Shell string

	// Sentinel marks the end of each command's output. Defaults to a random
	// token unique to this shell.
	Sentinel string

	// Stderr receives the shell's standard error. Defaults to os.Stderr.
	Stderr io.Writer
}

func setOptionDefaults(o *Options) *Options {
	if o == nil {
		o = &Options{}
	}
	util.MaybeSetDefault(&o.Elevator, "pkexec")
	util.MaybeSetDefault(&o.Shell, "bash")
	util.MaybeSetDefault(&o.Sentinel, NewSentinel())
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// NewSentinel returns a fresh random sentinel.
func NewSentinel() string {
	return SentinelPrefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Shell is a long-running shell process that runs commands one at a time.
type Shell struct {
	cmd      *exec.Cmd // Nil if the pipes were supplied with New.
	sentinel string
	closer   io.Closer

	mu  sync.Mutex
	in  *bufio.Writer
	out *bufio.Reader
	err error // Sticky. Set once the stream can no longer be trusted.
}

// Start launches the elevated shell. This will normally cause the user to be
// prompted for a password. Returns a *SpawnError if the shell can't be
// started.
func Start(opts *Options) (*Shell, error) {
	opts = setOptionDefaults(opts)

	var cmd *exec.Cmd
	if opts.NoElevator {
		cmd = exec.Command(opts.Shell)
	} else {
		cmd = exec.Command(opts.Elevator, opts.Shell)
	}
	cmd.Stderr = opts.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Launcher: cmd.Args[0], Err: fmt.Errorf("failed to get stdin: %w", err)}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Launcher: cmd.Args[0], Err: fmt.Errorf("failed to get stdout: %w", err)}
	}

	log.Printf("Starting privileged shell: %s", strings.Join(cmd.Args, " "))
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Launcher: cmd.Args[0], Err: err}
	}

	s := New(stdout, stdin, opts.Sentinel)
	s.cmd = cmd
	return s, nil
}

// New creates a shell that talks over an existing pipe pair. out is read for
// the shell's output and in receives commands. If in implements io.Closer,
// Close closes it.
func New(out io.Reader, in io.Writer, sentinel string) *Shell {
	s := &Shell{
		sentinel: sentinel,
		in:       bufio.NewWriter(in),
		out:      bufio.NewReader(out),
	}
	if c, ok := in.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Sentinel returns the end-of-command marker used by this shell.
func (s *Shell) Sentinel() string {
	return s.sentinel
}

// Run executes a command line in the shell and returns everything it printed
// to stdout. Returns an *IOError if the shell can't be written to or read
// from. Once that happens the shell is unusable and every later call returns
// the same error.
func (s *Shell) Run(commandLine string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}
	res, err := s.run(commandLine)
	if err != nil {
		s.err = err
		return "", err
	}
	return res, nil
}

// Does the actual work of Run. Must be called with mu held.
func (s *Shell) run(commandLine string) (string, error) {
	log.Printf("Running: %s", commandLine)
	if _, err := fmt.Fprintf(s.in, "%s; echo %s\n", commandLine, s.sentinel); err != nil {
		return "", &IOError{Op: "write", Err: err}
	}
	if err := s.in.Flush(); err != nil {
		return "", &IOError{Op: "flush", Err: err}
	}

	var output strings.Builder
	for {
		line, err := s.out.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return "", &IOError{Op: "read", Err: err}
		}
		line = strings.TrimSuffix(line, "\n")
		if line == s.sentinel {
			return output.String(), nil
		}
		// Output that didn't end in a newline runs into the sentinel.
		if partial, ok := strings.CutSuffix(line, s.sentinel); ok {
			output.WriteString(partial)
			output.WriteByte('\n')
			return output.String(), nil
		}
		output.WriteString(line)
		output.WriteByte('\n')
	}
}

// Close closes the shell's input, which makes it exit, and waits for the
// process. It doesn't take the command lock, so it can't rescue a command
// that is stuck. Any Run after Close fails.
func (s *Shell) Close() error {
	var errs []error
	if s.closer != nil {
		errs = append(errs, s.closer.Close())
	}
	if s.cmd != nil {
		if err := s.cmd.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("waiting for shell: %w", err))
		}
	}
	return errors.Join(errs...)
}
