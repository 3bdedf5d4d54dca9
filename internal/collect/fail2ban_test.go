package collect

import (
	"context"
	"strings"
	"testing"

	"github.com/opshawk/opshawk/internal/agentexec"
)

const overallStatus = `Status
|- Number of jail:	2
` + "`- Jail list:\tsshd, nginx-badbots"

const sshdStatus = `Status for the jail: sshd
|- Filter
|  |- Currently failed:	3
|  |- Total failed:	1284
|  ` + "`- File list:\t/var/log/auth.log" + `
` + "`- Actions" + `
   |- Currently banned:	2
   |- Total banned:	97
   ` + "`- Banned IP list:\t192.0.2.10 198.51.100.7"

type scriptedRunner struct {
	outputs map[string]agentexec.Result
}

func (r *scriptedRunner) Run(ctx context.Context, command string, args []string) (agentexec.Result, error) {
	key := command + " " + strings.Join(args, " ")
	if res, ok := r.outputs[key]; ok {
		return res, nil
	}
	return agentexec.Result{ExitCode: 1, Stderr: "no such command scripted"}, nil
}

func TestParseJailList(t *testing.T) {
	jails := parseJailList(overallStatus)
	if len(jails) != 2 || jails[0] != "sshd" || jails[1] != "nginx-badbots" {
		t.Fatalf("jails = %v", jails)
	}
}

func TestParseJailListEmpty(t *testing.T) {
	if jails := parseJailList("Status\n`- Jail list:\t\n"); len(jails) != 0 {
		t.Fatalf("jails = %v", jails)
	}
}

func TestParseJailStatus(t *testing.T) {
	jail := parseJailStatus("sshd", sshdStatus)
	if jail.CurrentlyBanned != 2 {
		t.Errorf("currently banned = %d", jail.CurrentlyBanned)
	}
	if jail.TotalBanned != 97 {
		t.Errorf("total banned = %d", jail.TotalBanned)
	}
	if len(jail.BannedIPs) != 2 || jail.BannedIPs[0] != "192.0.2.10" {
		t.Errorf("banned IPs = %v", jail.BannedIPs)
	}
}

func TestFail2banStatus(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]agentexec.Result{
		"fail2ban-client status":      {Stdout: overallStatus},
		"fail2ban-client status sshd": {Stdout: sshdStatus},
		// nginx-badbots intentionally unscripted: jail read failures are
		// skipped, not fatal.
	}}
	c := NewFail2banCollector(runner)

	status, err := c.Fail2banStatus(context.Background())
	if err != nil {
		t.Fatalf("Fail2banStatus: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running")
	}
	if len(status.Jails) != 1 || status.Jails[0].Name != "sshd" {
		t.Fatalf("jails = %+v", status.Jails)
	}
}

func TestFail2banNotRunning(t *testing.T) {
	c := NewFail2banCollector(&scriptedRunner{})
	status, err := c.Fail2banStatus(context.Background())
	if err != nil {
		t.Fatalf("Fail2banStatus: %v", err)
	}
	if status.Running {
		t.Fatal("expected not running")
	}
}
