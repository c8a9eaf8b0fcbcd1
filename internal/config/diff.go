package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ThresholdChanged bool
	NewThreshold     int

	DefaultSizeChanged bool
	NewDefaultSize     string

	RosterChanged bool
	RosterAdded   []string
	RosterRemoved []string
}

// Any reports whether the diff contains any change at all.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.ThresholdChanged || d.DefaultSizeChanged || d.RosterChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Inventory.LowStockThreshold != new.Inventory.LowStockThreshold {
		d.ThresholdChanged = true
		d.NewThreshold = new.Inventory.LowStockThreshold
	}

	if old.Inventory.DefaultSize != new.Inventory.DefaultSize {
		d.DefaultSizeChanged = true
		d.NewDefaultSize = new.Inventory.DefaultSize
	}

	for _, name := range new.Roster {
		if !slices.Contains(old.Roster, name) {
			d.RosterAdded = append(d.RosterAdded, name)
		}
	}
	for _, name := range old.Roster {
		if !slices.Contains(new.Roster, name) {
			d.RosterRemoved = append(d.RosterRemoved, name)
		}
	}
	d.RosterChanged = len(d.RosterAdded) > 0 || len(d.RosterRemoved) > 0

	return d
}
