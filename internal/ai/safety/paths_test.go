package safety

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathAllowed(t *testing.T) {
	allowed := []string{"/tmp", "/opt"}

	cases := []struct {
		name string
		path string
		want bool
	}{
		{"exact root", "/tmp", true},
		{"descendant", "/tmp/logs/app.log", true},
		{"second root", "/opt/data.json", true},
		{"outside", "/etc/passwd", false},
		{"traversal escapes", "/tmp/../etc/passwd", false},
		{"component boundary", "/tmpfoo/file", false},
		{"empty path", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PathAllowed(tc.path, allowed); got != tc.want {
				t.Fatalf("PathAllowed(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestPathAllowedComponentBoundary(t *testing.T) {
	// /home/user must not match /home/username.
	if PathAllowed("/home/username/file", []string{"/home/user"}) {
		t.Fatal("string-prefix match across a path component boundary")
	}
	if !PathAllowed("/home/user/file", []string{"/home/user"}) {
		t.Fatal("legitimate descendant rejected")
	}
}

func TestPathAllowedFailsClosed(t *testing.T) {
	if PathAllowed("/tmp/file", nil) {
		t.Fatal("empty allowlist must allow nothing")
	}
	if PathAllowed("/tmp/file", []string{}) {
		t.Fatal("empty allowlist must allow nothing")
	}
}

func TestValidateRealPathCatchesSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	target := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(target, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}
	link := filepath.Join(root, "innocent.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := ValidateRealPath(link, []string{root}); err == nil {
		t.Fatal("symlink escaping the allowed root was accepted")
	}

	inside := filepath.Join(root, "ok.txt")
	if err := os.WriteFile(inside, []byte("ok"), 0o644); err != nil {
		t.Fatalf("write inside: %v", err)
	}
	resolved, err := ValidateRealPath(inside, []string{root})
	if err != nil {
		t.Fatalf("legitimate path rejected: %v", err)
	}
	if !PathAllowed(resolved, []string{root}) {
		t.Fatalf("resolved path %q escaped the root", resolved)
	}
}

func TestExtensionAllowed(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/var/log/syslog.log", true},
		{"/etc/app/config.yaml", true},
		{"/opt/app/notes.md", true},
		{"/opt/app/.env.example", true},
		{"/opt/app/.env", false},
		{"/opt/app/binary", false},
		{"/opt/app/image.png", false},
		{"/opt/app/tool.so", false},
	}

	for _, tc := range cases {
		if got := ExtensionAllowed(tc.path); got != tc.want {
			t.Errorf("ExtensionAllowed(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestLooksBinary(t *testing.T) {
	if LooksBinary([]byte("plain text\nwith lines")) {
		t.Fatal("text flagged as binary")
	}
	if !LooksBinary([]byte("ELF\x00header")) {
		t.Fatal("null byte not detected")
	}
}
