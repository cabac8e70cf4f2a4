// Command cocotap is a console for iptables. It runs every iptables command
// through a single elevated shell, so authentication only happens once per
// session.
//
// With no arguments it starts a text UI. Otherwise it runs one command:
//
//	cocotap list TABLE CHAIN
//	cocotap add TABLE CHAIN RULE...
//	cocotap delete TABLE CHAIN LINE
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/pcekm/cocotap/internal/firewall"
	"github.com/pcekm/cocotap/internal/privshell"
	"github.com/pcekm/cocotap/internal/tui"
	"github.com/pcekm/cocotap/internal/tui/logwindow"
)

// Flags.
var (
	elevator   = pflag.String("elevator", "pkexec", "Program used to start the shell with elevated privileges.")
	noElevator = pflag.Bool("no-elevator", false, "Start the shell directly, without an elevator. Useful when already root.")
	shell      = pflag.String("shell", "bash", "Shell to run commands in.")
	iptables   = pflag.String("iptables", "iptables", "The iptables binary.")
	sentinel   = pflag.String("sentinel", "", "End of output marker. Defaults to a random one per session.")
	table      = pflag.StringP("table", "t", "filter", "Table to show at startup.")
	chain      = pflag.StringP("chain", "c", "INPUT", "Chain to show at startup.")
	logfile    = pflag.String("logfile", "/dev/null", "File to output logs in the text UI.")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [list TABLE CHAIN | add TABLE CHAIN RULE... | delete TABLE CHAIN LINE]\n", os.Args[0])
	pflag.PrintDefaults()
}

func main() {
	pflag.Usage = usage
	// Rules contain their own flags, like -p and -j.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	var logWin *logwindow.Model
	if pflag.NArg() == 0 {
		if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
			log.Fatal("Error: not a terminal. Use list, add or delete instead.")
		}
		logWin = setupUILogging()
	}

	sh, err := privshell.Start(&privshell.Options{
		Elevator:   *elevator,
		NoElevator: *noElevator,
		Shell:      *shell,
		Sentinel:   *sentinel,
		Stderr:     stderrWriter(),
	})
	if err != nil {
		log.Fatalf("Error starting shell: %v", err)
	}
	defer func() {
		if err := sh.Close(); err != nil {
			log.Printf("Error closing shell: %v", err)
		}
	}()

	fw := firewall.NewClient(sh, &firewall.Options{Binary: *iptables})

	if pflag.NArg() > 0 {
		if err := runCommand(fw, os.Stdout, pflag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			sh.Close()
			os.Exit(1)
		}
		return
	}

	opts := &tui.Options{
		Table: *table,
		Chain: *chain,
		Log:   logWin,
	}
	prog := tea.NewProgram(tui.New(fw, opts), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		log.Printf("Error running UI: %v", err)
	}
}

// Sends log output to the log file and the log window. The file stays open
// until exit.
func setupUILogging() *logwindow.Model {
	logWin := logwindow.New()
	if *logfile == "" {
		log.SetOutput(logWin)
		return logWin
	}
	logf, err := tea.LogToFile(*logfile, "")
	if err != nil {
		log.Fatalf("Error opening output log: %v", err)
	}
	log.SetOutput(io.MultiWriter(logf, logWin))
	return logWin
}

// The shell's stderr joins the log, so it doesn't draw over the UI.
func stderrWriter() io.Writer {
	if pflag.NArg() > 0 {
		return os.Stderr
	}
	return log.Writer()
}

var errUsage = errors.New("wrong number of arguments")

func runCommand(fw *firewall.Client, w io.Writer, args []string) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "list":
		if len(args) != 2 {
			return fmt.Errorf("list: %w", errUsage)
		}
		listing, err := fw.Listing(args[0], args[1])
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, listing+"\n")
		return err
	case "add":
		if len(args) < 3 {
			return fmt.Errorf("add: %w", errUsage)
		}
		if err := fw.AddRule(args[0], args[1], privshell.QuoteArgs(args[2:]...)); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, "Rule added.")
		return err
	case "delete":
		if len(args) != 3 {
			return fmt.Errorf("delete: %w", errUsage)
		}
		if err := fw.DeleteRule(args[0], args[1], args[2]); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, "Rule deleted.")
		return err
	}
	return fmt.Errorf("unknown command %q", cmd)
}
