package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hazel.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Collector.AutoInterval != "30s" {
		t.Errorf("AutoInterval = %q, want 30s", c.Collector.AutoInterval)
	}
	if c.Collector.DeferralWarning != 100 {
		t.Errorf("DeferralWarning = %d, want 100", c.Collector.DeferralWarning)
	}
	if c.Dir != dir {
		t.Errorf("Dir = %q, want %q", c.Dir, dir)
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := writeConfig(t, `
[collector]
auto-interval = "2m"
deferral-warning = 7

[log]
verbosity = 2
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, err := c.AutoInterval()
	if err != nil {
		t.Fatalf("AutoInterval: %v", err)
	}
	if d != 2*time.Minute {
		t.Errorf("interval = %v, want 2m", d)
	}
	if c.Collector.DeferralWarning != 7 {
		t.Errorf("DeferralWarning = %d, want 7", c.Collector.DeferralWarning)
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("Verbosity = %d, want 2", c.Log.Verbosity)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := writeConfig(t, `
[log]
verbosity = 1
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Collector.DeferralWarning != 100 {
		t.Error("unset collector settings should keep defaults")
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	dir := writeConfig(t, `
[collector]
auto-interval = "soonish"
`)
	if _, err := Load(dir); err == nil {
		t.Error("Load should reject an unparsable interval")
	}
}

func TestLoadRejectsNegativeWarning(t *testing.T) {
	dir := writeConfig(t, `
[collector]
deferral-warning = -1
`)
	if _, err := Load(dir); err == nil {
		t.Error("Load should reject a negative deferral warning")
	}
}

func TestEmptyIntervalDisablesAutoCollect(t *testing.T) {
	c := Default()
	c.Collector.AutoInterval = ""
	d, err := c.AutoInterval()
	if err != nil {
		t.Fatalf("AutoInterval: %v", err)
	}
	if d != 0 {
		t.Errorf("interval = %v, want 0 (disabled)", d)
	}
}
