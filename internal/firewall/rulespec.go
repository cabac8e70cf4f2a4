package firewall

import "strings"

// Tables that can be browsed.
var Tables = []string{"filter", "nat"}

// Chains that can be browsed. Not every chain exists in every table; iptables
// reports an error for the ones that don't.
var Chains = []string{"INPUT", "OUTPUT", "FORWARD", "PREROUTING", "POSTROUTING"}

// Rule targets.
const (
	Accept     = "ACCEPT"
	Reject     = "REJECT"
	Drop       = "DROP"
	DNAT       = "DNAT"
	SNAT       = "SNAT"
	Masquerade = "MASQUERADE"
)

// Actions returns the targets offered for a table. The NAT targets only make
// sense in the nat table.
func Actions(table string) []string {
	actions := []string{Accept, Reject, Drop}
	if table == "nat" {
		actions = append(actions, DNAT, SNAT, Masquerade)
	}
	return actions
}

// NeedsNATTarget reports whether an action takes an address in
// RuleSpec.NATTo.
func NeedsNATTarget(action string) bool {
	return action == DNAT || action == SNAT
}

// RuleSpec holds the common fields of a rule. Empty fields are left out.
// Nothing is validated; iptables does that.
type RuleSpec struct {
	Protocol    string
	Source      string
	Destination string
	SourcePort  string
	DestPort    string
	InIface     string
	OutIface    string
	Comment     string

	// Action is the jump target. Defaults to ACCEPT.
	Action string

	// NATTo is the --to-destination address for DNAT and the --to-source
	// address for SNAT.
	NATTo string
}

// String returns the rule in iptables argument syntax, suitable for
// [Client.AddRule].
func (r RuleSpec) String() string {
	var b strings.Builder
	add := func(flag, val string) {
		if val == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(flag)
		b.WriteByte(' ')
		b.WriteString(val)
	}

	add("-p", r.Protocol)
	add("-s", r.Source)
	add("-d", r.Destination)
	add("--sport", r.SourcePort)
	add("--dport", r.DestPort)
	add("-i", r.InIface)
	add("-o", r.OutIface)
	if r.Comment != "" {
		add("-m", "comment")
		add("--comment", doubleQuote(r.Comment))
	}

	action := r.Action
	if action == "" {
		action = Accept
	}
	add("-j", action)
	switch action {
	case DNAT:
		add("--to-destination", r.NATTo)
	case SNAT:
		add("--to-source", r.NATTo)
	}
	return b.String()
}

// RuleLines strips the header lines and blank lines from a rule listing,
// leaving one element per rule.
func RuleLines(listing []string) []string {
	var rules []string
	for i, l := range listing {
		if i < 2 {
			continue
		}
		l = strings.TrimSpace(l)
		if l != "" {
			rules = append(rules, l)
		}
	}
	return rules
}

// LineNumber returns the line number column of a rule line, which is what
// [Client.DeleteRule] takes.
func LineNumber(rule string) string {
	f := strings.Fields(rule)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// Quotes a string the way shlex reads it back.
func doubleQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
