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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

const testSentinel = "END_OF_CMD_test"

// Returns the output for a command.
type commandHandler func(cmd string) string

// Pretends to be a shell on the other end of a pipe pair. Only understands
// lines in the form written by Shell.Run.
type fakeShell struct {
	t   *testing.T
	in  io.ReadCloser
	inb *bufio.Reader
	out io.WriteCloser

	handler commandHandler

	mu       sync.Mutex
	received []string
}

func (f *fakeShell) Run() {
	for {
		line, err := f.inb.ReadString('\n')
		if err != nil {
			return
		}
		cmd, ok := strings.CutSuffix(line, "; echo "+testSentinel+"\n")
		if !ok {
			f.t.Errorf("Malformed command line: %q", line)
			return
		}
		f.mu.Lock()
		f.received = append(f.received, cmd)
		f.mu.Unlock()
		if _, err := io.WriteString(f.out, f.handler(cmd)+testSentinel+"\n"); err != nil {
			log.Printf("Fake shell write error: %v", err)
			return
		}
	}
}

func (f *fakeShell) Received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

// Closes the fake shell's end of both pipes, as if it had exited.
func (f *fakeShell) Close() error {
	return errors.Join(f.in.Close(), f.out.Close())
}

// Makes a Shell connected to a fake shell. The fake shell isn't started.
//
// Commands travel over one pipe and output comes back over another:
//
//	Shell --cmdW/cmdR--> fakeShell --outW/outR--> Shell
func makeShellPair(t *testing.T, handler commandHandler) (*Shell, *fakeShell) {
	deadline := time.Now().Add(5 * time.Second)
	cmdR, cmdW, err := os.Pipe()
	if err != nil {
		t.Fatalf("Error creating pipe: %v", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatalf("Error creating pipe: %v", err)
	}
	for _, f := range []*os.File{cmdR, cmdW, outR, outW} {
		f.SetDeadline(deadline)
	}

	sh := New(outR, cmdW, testSentinel)
	fake := &fakeShell{
		t:       t,
		in:      cmdR,
		inb:     bufio.NewReader(cmdR),
		out:     outW,
		handler: handler,
	}
	t.Cleanup(func() {
		sh.Close()
		fake.Close()
		outR.Close()
	})
	return sh, fake
}

func TestRun(t *testing.T) {
	sh, fake := makeShellPair(t, func(cmd string) string {
		return "Chain INPUT (policy ACCEPT)\nnum  target     prot opt source               destination\n"
	})
	go fake.Run()

	got, err := sh.Run("iptables -t filter -L INPUT -n --line-numbers")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := "Chain INPUT (policy ACCEPT)\nnum  target     prot opt source               destination\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Wrong output (-want, +got):\n%v", diff)
	}
	if diff := cmp.Diff([]string{"iptables -t filter -L INPUT -n --line-numbers"}, fake.Received()); diff != "" {
		t.Errorf("Wrong commands received (-want, +got):\n%v", diff)
	}
}

func TestRun_NoOutput(t *testing.T) {
	sh, fake := makeShellPair(t, func(string) string { return "" })
	go fake.Run()

	got, err := sh.Run("true")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if diff := cmp.Diff("", got); diff != "" {
		t.Errorf("Wrong output (-want, +got):\n%v", diff)
	}
}

func TestRun_SentinelLookalikes(t *testing.T) {
	out := testSentinel + "x\n" + testSentinel + " \n" + SentinelPrefix + "\n\n"
	sh, fake := makeShellPair(t, func(string) string { return out })
	go fake.Run()

	got, err := sh.Run("cat lookalikes")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if diff := cmp.Diff(out, got); diff != "" {
		t.Errorf("Wrong output (-want, +got):\n%v", diff)
	}
}

func TestRun_Sequential(t *testing.T) {
	sh, fake := makeShellPair(t, func(cmd string) string { return cmd + "\n" })
	go fake.Run()

	for i := range 10 {
		cmd := fmt.Sprintf("cmd %d", i)
		got, err := sh.Run(cmd)
		if err != nil {
			t.Fatalf("Run(%q) error: %v", cmd, err)
		}
		if diff := cmp.Diff(cmd+"\n", got); diff != "" {
			t.Errorf("Wrong output for %q (-want, +got):\n%v", cmd, diff)
		}
	}
}

func TestRun_Concurrent(t *testing.T) {
	const (
		numCallers = 20
		numLines   = 5
	)
	expected := func(cmd string) string {
		var b strings.Builder
		for i := range numLines {
			fmt.Fprintf(&b, "%s line %d\n", cmd, i)
		}
		return b.String()
	}
	sh, fake := makeShellPair(t, expected)
	go fake.Run()

	results := make([]string, numCallers)
	var g errgroup.Group
	for i := range numCallers {
		g.Go(func() error {
			res, err := sh.Run(fmt.Sprintf("caller-%d", i))
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	for i, got := range results {
		if diff := cmp.Diff(expected(fmt.Sprintf("caller-%d", i)), got); diff != "" {
			t.Errorf("Wrong output for caller %d (-want, +got):\n%v", i, diff)
		}
	}
	if got := len(fake.Received()); got != numCallers {
		t.Errorf("Fake shell received %d commands (want %d)", got, numCallers)
	}
}

func TestRun_ShellExited(t *testing.T) {
	sh, fake := makeShellPair(t, func(string) string { return "" })
	if err := fake.out.Close(); err != nil {
		t.Fatalf("Error closing pipe: %v", err)
	}
	go fake.Run()

	_, err := sh.Run("true")
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Run error = %v (want *IOError)", err)
	}
	if ioErr.Op != "read" {
		t.Errorf("Wrong op: %q (want %q)", ioErr.Op, "read")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Run error = %v (want io.ErrUnexpectedEOF)", err)
	}

	// Broken shells stay broken.
	_, err2 := sh.Run("true")
	if err2 != err {
		t.Errorf("Second Run error = %v (want %v)", err2, err)
	}
}

func TestRun_UnterminatedOutput(t *testing.T) {
	sh, fake := makeShellPair(t, func(string) string { return "last line" })
	go fake.Run()

	got, err := sh.Run("printf 'last line'")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if diff := cmp.Diff("last line\n", got); diff != "" {
		t.Errorf("Wrong output (-want, +got):\n%v", diff)
	}
}

// The glued sentinel ends the read, and nothing of it is left over for the
// next command.
func TestRun_UnterminatedOutputThenNext(t *testing.T) {
	sh, fake := makeShellPair(t, func(cmd string) string {
		if cmd == "first" {
			return "one\ntwo"
		}
		return cmd + "\n"
	})
	go fake.Run()

	cases := []struct {
		Cmd  string
		Want string
	}{
		{Cmd: "first", Want: "one\ntwo\n"},
		{Cmd: "second", Want: "second\n"},
	}
	for _, c := range cases {
		got, err := sh.Run(c.Cmd)
		if err != nil {
			t.Fatalf("Run(%q) error: %v", c.Cmd, err)
		}
		if diff := cmp.Diff(c.Want, got); diff != "" {
			t.Errorf("Wrong output for %q (-want, +got):\n%v", c.Cmd, diff)
		}
	}
	if diff := cmp.Diff([]string{"first", "second"}, fake.Received()); diff != "" {
		t.Errorf("Wrong commands received (-want, +got):\n%v", diff)
	}
}

func TestRun_TruncatedOutput(t *testing.T) {
	sh, fake := makeShellPair(t, nil)
	go func() {
		fake.inb.ReadString('\n')
		io.WriteString(fake.out, "partial line without newline")
		fake.out.Close()
	}()

	_, err := sh.Run("cat")
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Run error = %v (want *IOError)", err)
	}
	if ioErr.Op != "read" {
		t.Errorf("Wrong op: %q (want %q)", ioErr.Op, "read")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Run error = %v (want io.ErrUnexpectedEOF)", err)
	}
}

func TestRun_WriteFails(t *testing.T) {
	sh, fake := makeShellPair(t, nil)
	if err := fake.in.Close(); err != nil {
		t.Fatalf("Error closing pipe: %v", err)
	}

	_, err := sh.Run("true")
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Run error = %v (want *IOError)", err)
	}
	if ioErr.Op != "flush" {
		t.Errorf("Wrong op: %q (want %q)", ioErr.Op, "flush")
	}
}

func TestRun_AfterClose(t *testing.T) {
	sh, fake := makeShellPair(t, func(string) string { return "" })
	go fake.Run()

	if err := sh.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
	var ioErr *IOError
	if _, err := sh.Run("true"); !errors.As(err, &ioErr) {
		t.Errorf("Run error = %v (want *IOError)", err)
	}
}

func TestStart_SpawnError(t *testing.T) {
	_, err := Start(&Options{Elevator: "/nonexistent/elevator"})
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Start error = %v (want *SpawnError)", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to start /nonexistent/elevator shell: ") {
		t.Errorf("Wrong error message: %q", err)
	}
}

func TestDefaultSentinel(t *testing.T) {
	opts := setOptionDefaults(nil)
	if !strings.HasPrefix(opts.Sentinel, SentinelPrefix+"_") {
		t.Errorf("Wrong sentinel prefix: %q", opts.Sentinel)
	}
	if other := setOptionDefaults(nil).Sentinel; other == opts.Sentinel {
		t.Errorf("Sentinel not random: %q twice", other)
	}
	if diff := cmp.Diff("pkexec", opts.Elevator); diff != "" {
		t.Errorf("Wrong elevator (-want, +got):\n%v", diff)
	}
	if diff := cmp.Diff("bash", opts.Shell); diff != "" {
		t.Errorf("Wrong shell (-want, +got):\n%v", diff)
	}
}

// Starts a real, unprivileged sh.
func startSh(t *testing.T) *Shell {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("No sh: %v", err)
	}
	sh, err := Start(&Options{NoElevator: true, Shell: "sh"})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	return sh
}

func TestRealShell(t *testing.T) {
	sh := startSh(t)
	defer func() {
		if err := sh.Close(); err != nil {
			t.Errorf("Close error: %v", err)
		}
	}()

	cases := []struct {
		Cmd  string
		Want string
	}{
		{Cmd: "echo hello; echo world", Want: "hello\nworld\n"},
		{Cmd: "true", Want: ""},
		{Cmd: "echo " + sh.Sentinel() + "x", Want: sh.Sentinel() + "x\n"},
		{Cmd: "printf 'no newline'", Want: "no newline\n"},
		{Cmd: "false", Want: ""},
		{Cmd: "X=state", Want: ""},
		{Cmd: "echo $X", Want: "state\n"},
	}
	for _, c := range cases {
		got, err := sh.Run(c.Cmd)
		if err != nil {
			t.Fatalf("Run(%q) error: %v", c.Cmd, err)
		}
		if diff := cmp.Diff(c.Want, got); diff != "" {
			t.Errorf("Wrong output for %q (-want, +got):\n%v", c.Cmd, diff)
		}
	}
}

func TestRealShell_Killed(t *testing.T) {
	sh := startSh(t)
	if _, err := sh.Run("true"); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if err := sh.cmd.Process.Kill(); err != nil {
		t.Fatalf("Kill error: %v", err)
	}
	sh.cmd.Process.Wait()

	done := make(chan error)
	go func() {
		_, err := sh.Run("echo still here")
		done <- err
	}()
	select {
	case err := <-done:
		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			t.Errorf("Run error = %v (want *IOError)", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run hung after shell was killed")
	}
}
