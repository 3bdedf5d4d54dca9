package safety

import (
	"fmt"
	"strings"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"
)

// CommandDecision is the outcome of evaluating a command against policy.
type CommandDecision struct {
	Allowed bool
	Reason  string
}

// commandRule restricts one allowlisted binary. An empty Verbs list means the
// command takes no verb restriction; DeniedFlags are wildcard patterns that
// must not appear anywhere in the argument list; RequiredPredicate, when set,
// gets the final say over the full argument list.
type commandRule struct {
	Verbs       []string
	DeniedFlags []string
	Check       func(args []string) error
}

// commandRules is the fixed allowlist of diagnostic commands. Every command
// here is restricted to read-only introspection verbs; anything absent from
// this table is rejected outright.
var commandRules = map[string]commandRule{
	"docker": {
		Verbs: []string{"ps", "logs", "inspect", "stats", "images", "info", "version", "top", "port", "diff"},
		// -f/--follow would hang the executor; --force has no read-only use.
		DeniedFlags: []string{"-f", "--follow", "--force", "--rm"},
	},
	"systemctl": {
		Verbs: []string{"status", "show", "is-active", "is-enabled", "is-failed", "list-units", "list-unit-files", "list-timers", "list-dependencies", "cat"},
	},
	"journalctl": {
		DeniedFlags: []string{"--vacuum*", "--rotate", "--flush", "--sync", "--relinquish-var", "--setup-keys"},
	},
	"fail2ban-client": {
		Verbs: []string{"status", "version", "ping"},
	},
	"ps":     {},
	"free":   {},
	"df":     {},
	"uptime": {},
	"who":    {},
	"ss":     {},
	"curl": {
		DeniedFlags: []string{"-d", "--data*", "-F", "--form*", "-T", "--upload-file", "-o", "--output", "-O", "--remote-name"},
		Check:       curlGetOnly,
	},
}

// EvaluateCommand decides whether a command plus arguments may be executed.
// It fails closed: unknown commands, disallowed verbs, and denied flags all
// reject before any process is spawned.
func EvaluateCommand(command string, args []string) CommandDecision {
	name := strings.ToLower(strings.TrimSpace(command))
	if name == "" {
		return CommandDecision{Allowed: false, Reason: "empty command"}
	}

	rule, ok := commandRules[name]
	if !ok {
		return CommandDecision{Allowed: false, Reason: fmt.Sprintf("command %q is not in the allowlist", name)}
	}

	// Metacharacters are checked on the raw arguments: normalization exists to
	// defeat quoting tricks against the flag patterns, not to launder input.
	for _, arg := range args {
		if containsShellMetachar(arg) {
			return CommandDecision{Allowed: false, Reason: fmt.Sprintf("argument %q contains shell metacharacters", arg)}
		}
	}

	normalized := make([]string, len(args))
	for i, a := range args {
		normalized[i] = normalizeArg(a)
	}

	if len(rule.Verbs) > 0 {
		verb := firstVerb(normalized)
		if verb == "" {
			return CommandDecision{Allowed: false, Reason: fmt.Sprintf("%s requires one of: %s", name, strings.Join(rule.Verbs, ", "))}
		}
		if !containsString(rule.Verbs, verb) {
			return CommandDecision{Allowed: false, Reason: fmt.Sprintf("%s %s is not permitted (allowed verbs: %s)", name, verb, strings.Join(rule.Verbs, ", "))}
		}
	}

	for _, arg := range normalized {
		for _, denied := range rule.DeniedFlags {
			if wildcard.Match(denied, arg) || wildcard.Match(denied+"=*", arg) {
				return CommandDecision{Allowed: false, Reason: fmt.Sprintf("%s argument %q is not permitted", name, arg)}
			}
		}
	}

	if rule.Check != nil {
		if err := rule.Check(normalized); err != nil {
			return CommandDecision{Allowed: false, Reason: err.Error()}
		}
	}

	return CommandDecision{Allowed: true}
}

// curlGetOnly rejects any explicit request method other than GET.
func curlGetOnly(args []string) error {
	for i, arg := range args {
		if arg == "-X" || arg == "--request" {
			if i+1 >= len(args) || !strings.EqualFold(args[i+1], "GET") {
				return fmt.Errorf("curl is restricted to GET requests")
			}
		}
		if strings.HasPrefix(arg, "-X") && len(arg) > 2 && !strings.EqualFold(arg[2:], "GET") {
			return fmt.Errorf("curl is restricted to GET requests")
		}
		if strings.HasPrefix(arg, "--request=") && !strings.EqualFold(arg[len("--request="):], "GET") {
			return fmt.Errorf("curl is restricted to GET requests")
		}
	}
	return nil
}

// normalizeArg strips quoting and escape characters that could be used to
// smuggle a denied flag past pattern matching ('--vacuum-size' vs --vacuum-size).
func normalizeArg(arg string) string {
	replacer := strings.NewReplacer(`\`, "", `'`, "", `"`, "", "`", "")
	return strings.TrimSpace(replacer.Replace(arg))
}

// firstVerb returns the first non-flag argument.
func firstVerb(args []string) string {
	for _, a := range args {
		if a == "" || strings.HasPrefix(a, "-") {
			continue
		}
		return strings.ToLower(a)
	}
	return ""
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// containsShellMetachar rejects characters that only make sense when a string
// is destined for a shell. Arguments are passed unexpanded to exec, so any of
// these in an argument signals an injection attempt rather than a real flag.
func containsShellMetachar(arg string) bool {
	return strings.ContainsAny(arg, ";|&$><`\n")
}
