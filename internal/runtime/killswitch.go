package runtime

import (
	"os"
	"path/filepath"
)

// killSwitchFile is the sentinel file an operator drops into the state
// directory to trip the kill-switch: "a single external flag in State"
// per spec.md §4.7, implemented the same way the rest of this package
// treats the filesystem as the durable control surface (write-tmp-then-
// rename for state, a plain sentinel file for a one-bit manual override).
const killSwitchFile = "KILL"

// KillSwitch polls for the sentinel file each cycle rather than caching
// its state in memory, so an operator dropping or removing the file
// takes effect on the very next paper-execution tick.
type KillSwitch struct {
	path string
}

// NewKillSwitch returns a KillSwitch rooted at dir (the same directory
// live_state.json is written to).
func NewKillSwitch(dir string) *KillSwitch {
	return &KillSwitch{path: filepath.Join(dir, killSwitchFile)}
}

// Tripped reports whether the sentinel file currently exists.
func (k *KillSwitch) Tripped() bool {
	_, err := os.Stat(k.path)
	return err == nil
}

// Trip creates the sentinel file. Used by the CLI's kill command.
func (k *KillSwitch) Trip() error {
	f, err := os.Create(k.path)
	if err != nil {
		return err
	}
	return f.Close()
}

// Reset removes the sentinel file. Used by the CLI's kill --reset; the
// runtime does not call it, so a tripped switch stays tripped across
// trading days until it is reset.
func (k *KillSwitch) Reset() error {
	err := os.Remove(k.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
