package collect

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/opshawk/opshawk/internal/agentexec"
	"github.com/opshawk/opshawk/internal/ai/tools"
)

// Runner is the command execution dependency, satisfied by agentexec.Runner.
type Runner interface {
	Run(ctx context.Context, command string, args []string) (agentexec.Result, error)
}

// Fail2banCollector shells out to fail2ban-client and parses its output.
// There is no other stable interface; the socket protocol is private.
type Fail2banCollector struct {
	runner Runner
}

// NewFail2banCollector creates a collector using the given runner.
func NewFail2banCollector(runner Runner) *Fail2banCollector {
	return &Fail2banCollector{runner: runner}
}

// Fail2banStatus queries the overall status and then each jail.
func (c *Fail2banCollector) Fail2banStatus(ctx context.Context) (tools.Fail2banStatus, error) {
	res, err := c.runner.Run(ctx, "fail2ban-client", []string{"status"})
	if err != nil {
		return tools.Fail2banStatus{}, err
	}
	if res.ExitCode != 0 {
		// Not running (or not installed) is a finding, not a failure.
		return tools.Fail2banStatus{Running: false}, nil
	}

	status := tools.Fail2banStatus{Running: true}
	for _, jail := range parseJailList(res.Stdout) {
		jailRes, err := c.runner.Run(ctx, "fail2ban-client", []string{"status", jail})
		if err != nil || jailRes.ExitCode != 0 {
			log.Debug().Str("jail", jail).Msg("Cannot read jail status")
			continue
		}
		status.Jails = append(status.Jails, parseJailStatus(jail, jailRes.Stdout))
	}
	return status, nil
}

// parseJailList extracts jail names from the "Jail list:" line of the
// overall status output.
func parseJailList(out string) []string {
	for _, line := range strings.Split(out, "\n") {
		_, value, found := strings.Cut(line, "Jail list:")
		if !found {
			continue
		}
		var jails []string
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				jails = append(jails, name)
			}
		}
		return jails
	}
	return nil
}

// parseJailStatus reads the counters out of one jail's status output.
func parseJailStatus(name, out string) tools.JailStatus {
	jail := tools.JailStatus{Name: name}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "Currently banned:"):
			jail.CurrentlyBanned = trailingInt(line)
		case strings.Contains(line, "Total banned:"):
			jail.TotalBanned = trailingInt(line)
		case strings.Contains(line, "Banned IP list:"):
			_, value, _ := strings.Cut(line, "Banned IP list:")
			jail.BannedIPs = strings.Fields(value)
		}
	}
	return jail
}

func trailingInt(line string) int {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0
	}
	return n
}
