package backend

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/use-agent/forage/models"
)

func TestResolveProfileDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("no home dir: %v", err)
	}

	tests := []struct {
		name       string
		configured string
		headless   bool
		want       string
	}{
		{"explicit path", "/data/profiles/work", false, "/data/profiles/work"},
		{"explicit path stays in headless", "/data/profiles/work", true, "/data/profiles/work"},
		{"tilde expanded", "~/chrome-profile", false, filepath.Join(home, "chrome-profile")},
		{"empty headless is ephemeral", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveProfileDir(tt.configured, tt.headless)
			if got != tt.want {
				t.Errorf("ResolveProfileDir(%q, %v) = %q, want %q", tt.configured, tt.headless, got, tt.want)
			}
		})
	}
}

func TestAcquireProfile_Lifecycle(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireProfile(dir)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	lockPath := filepath.Join(dir, lockFileName)
	data, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("lock file not created: %v", err)
	}
	if pid, _ := strconv.Atoi(string(data)); pid != os.Getpid() {
		t.Errorf("lock holds pid %q, want %d", data, os.Getpid())
	}

	if _, err := AcquireProfile(dir); err == nil {
		t.Fatal("second acquire should fail while the lock is held")
	} else if code := models.CodeOf(err); code != models.ErrCodeProfileLocked {
		t.Errorf("second acquire error code = %s, want %s", code, models.ErrCodeProfileLocked)
	}

	lock.Release()
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("lock file should be removed after release")
	}

	// Released locks can be taken again; repeated release is a no-op.
	lock.Release()
	relock, err := AcquireProfile(dir)
	if err != nil {
		t.Fatalf("reacquire after release failed: %v", err)
	}
	relock.Release()
}

func TestAcquireProfile_ReclaimsStaleLock(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"dead pid", "99999999"},
		{"garbage content", "not-a-pid"},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			lockPath := filepath.Join(dir, lockFileName)
			if err := os.WriteFile(lockPath, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			lock, err := AcquireProfile(dir)
			if err != nil {
				t.Fatalf("stale lock not reclaimed: %v", err)
			}
			defer lock.Release()

			data, err := os.ReadFile(lockPath)
			if err != nil {
				t.Fatalf("lock file missing after reclaim: %v", err)
			}
			if pid, _ := strconv.Atoi(string(data)); pid != os.Getpid() {
				t.Errorf("reclaimed lock holds %q, want own pid", data)
			}
		})
	}
}

func TestAcquireProfile_RefusesLiveLock(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, lockFileName)
	if err := os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := AcquireProfile(dir)
	if err == nil {
		t.Fatal("expected acquire to fail against a live holder")
	}
	if code := models.CodeOf(err); code != models.ErrCodeProfileLocked {
		t.Errorf("error code = %s, want %s", code, models.ErrCodeProfileLocked)
	}
}

func TestAcquireProfile_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh-profile")

	lock, err := AcquireProfile(dir)
	if err != nil {
		t.Fatalf("acquire on missing dir failed: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("profile dir not created: %v", err)
	}
}

func TestPidAlive(t *testing.T) {
	if !pidAlive(os.Getpid()) {
		t.Error("own pid should be alive")
	}
	if pidAlive(99999999) {
		t.Error("absurd pid should be dead")
	}
	if pidAlive(0) || pidAlive(-1) {
		t.Error("non-positive pids should be dead")
	}
}
