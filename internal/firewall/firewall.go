// Package firewall builds iptables command lines and runs them through a
// privileged shell.
//
// Table, chain and line number arguments are quoted as single shell words. Rule
// specs are split into words the way a shell would split them, and then each
// word is quoted. So
//
//	-p tcp -m comment --comment "ssh in"
//
// reaches iptables as the same six arguments it would have if typed at a
// prompt, but something like "-j ACCEPT; reboot" can't run a second command.
package firewall

import (
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/pcekm/cocotap/internal/privshell"
	"github.com/pcekm/cocotap/internal/util"
)

// Runner runs a shell command line and returns its output. It's implemented by
// *privshell.Shell.
type Runner interface {
	Run(commandLine string) (string, error)
}

// Options contains client options.
type Options struct {
	// Binary is the iptables executable. Defaults to "iptables".
	Binary string
}

func setOptionDefaults(o *Options) *Options {
	if o == nil {
		o = &Options{}
	}
	util.MaybeSetDefault(&o.Binary, "iptables")
	return o
}

// Client lists, adds and deletes iptables rules.
type Client struct {
	runner Runner
	opts   *Options
}

// NewClient creates a new client.
func NewClient(r Runner, opts *Options) *Client {
	return &Client{
		runner: r,
		opts:   setOptionDefaults(opts),
	}
}

// ListRules returns the listing for a chain with numeric addresses and line
// numbers, one line per element. The two header lines that iptables prints are
// included.
func (c *Client) ListRules(table, chain string) ([]string, error) {
	out, err := c.runner.Run(c.ListCommand(table, chain))
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	out = strings.TrimSuffix(out, "\n")
	if out == "" {
		return []string{}, nil
	}
	return strings.Split(out, "\n"), nil
}

// Listing is ListRules with the lines joined by newlines.
func (c *Client) Listing(table, chain string) (string, error) {
	lines, err := c.ListRules(table, chain)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// AddRule appends a rule to the end of a chain. Nothing stops the same rule
// from being added twice.
func (c *Client) AddRule(table, chain, rule string) error {
	cmd, err := c.AddCommand(table, chain, rule)
	if err != nil {
		return fmt.Errorf("add rule: %w", err)
	}
	if _, err := c.runner.Run(cmd); err != nil {
		return fmt.Errorf("add rule: %w", err)
	}
	return nil
}

// DeleteRule deletes the rule at a 1-based line number. Rules after it move up
// by one.
func (c *Client) DeleteRule(table, chain, line string) error {
	if _, err := c.runner.Run(c.DeleteCommand(table, chain, line)); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// ListCommand returns the command line used by ListRules.
func (c *Client) ListCommand(table, chain string) string {
	return privshell.QuoteArgs(c.opts.Binary, "-t", table, "-L", chain, "-n", "--line-numbers")
}

// AddCommand returns the command line used by AddRule. Fails if the rule has
// unbalanced quotes.
func (c *Client) AddCommand(table, chain, rule string) (string, error) {
	words, err := shlex.Split(rule)
	if err != nil {
		return "", fmt.Errorf("rule %q: %v", rule, err)
	}
	args := append([]string{c.opts.Binary, "-t", table, "-A", chain}, words...)
	return privshell.QuoteArgs(args...), nil
}

// DeleteCommand returns the command line used by DeleteRule.
func (c *Client) DeleteCommand(table, chain, line string) string {
	return privshell.QuoteArgs(c.opts.Binary, "-t", table, "-D", chain, line)
}
