package runtime

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKillSwitch_NotTrippedInitially(t *testing.T) {
	ks := NewKillSwitch(t.TempDir())
	if ks.Tripped() {
		t.Fatal("expected a fresh kill-switch to not be tripped")
	}
}

func TestKillSwitch_TripCreatesSentinelFile(t *testing.T) {
	dir := t.TempDir()
	ks := NewKillSwitch(dir)

	if err := ks.Trip(); err != nil {
		t.Fatalf("Trip() error: %v", err)
	}
	if !ks.Tripped() {
		t.Fatal("expected Tripped() to report true after Trip()")
	}
	if _, err := os.Stat(filepath.Join(dir, killSwitchFile)); err != nil {
		t.Fatalf("expected sentinel file on disk: %v", err)
	}
}

func TestKillSwitch_ResetRemovesSentinelFile(t *testing.T) {
	dir := t.TempDir()
	ks := NewKillSwitch(dir)

	if err := ks.Trip(); err != nil {
		t.Fatalf("Trip() error: %v", err)
	}
	if err := ks.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if ks.Tripped() {
		t.Fatal("expected Tripped() to report false after Reset()")
	}
}

func TestKillSwitch_ResetWithoutPriorTripIsNotAnError(t *testing.T) {
	ks := NewKillSwitch(t.TempDir())
	if err := ks.Reset(); err != nil {
		t.Fatalf("Reset() on a never-tripped switch should be a no-op, got: %v", err)
	}
}

func TestKillSwitch_SecondInstanceSeesTheSameSentinel(t *testing.T) {
	dir := t.TempDir()
	tripper := NewKillSwitch(dir)
	reader := NewKillSwitch(dir)

	if reader.Tripped() {
		t.Fatal("expected no sentinel before Trip()")
	}
	if err := tripper.Trip(); err != nil {
		t.Fatalf("Trip() error: %v", err)
	}
	if !reader.Tripped() {
		t.Fatal("a second KillSwitch rooted at the same dir should observe the sentinel file")
	}
}
