package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Screen names used in the per-screen flag map.
const (
	ScreenDriverHome     = "DRIVER_HOME"
	ScreenDriverTrips    = "DRIVER_TRIPS"
	ScreenDriverTracking = "DRIVER_TRACKING"
	ScreenDriverEarnings = "DRIVER_EARNINGS"
	ScreenFleetDashboard = "FLEET_DASHBOARD"
	ScreenFleetLiveMap   = "FLEET_LIVE_MAP"
	ScreenFleetTrips     = "FLEET_TRIPS"
	ScreenFleetFleet     = "FLEET_FLEET"
	ScreenFleetBilling   = "FLEET_BILLING"
	ScreenInbox          = "INBOX"
)

// FeatureFlags selects between the mock and the remote backend.
type FeatureFlags struct {
	// Enabled is the master switch for the remote backend.
	Enabled bool            `yaml:"enabled"`
	Screens map[string]bool `yaml:"screens"`
	// OrgID is the organization used when a caller does not pick one.
	OrgID         string `yaml:"org_id"`
	TestDriverID  string `yaml:"test_driver_id"`
	TestManagerID string `yaml:"test_manager_id"`
}

// DefaultFeatureFlags has the remote backend off and every screen opted in.
func DefaultFeatureFlags() FeatureFlags {
	screens := map[string]bool{}
	for _, s := range []string{
		ScreenDriverHome, ScreenDriverTrips, ScreenDriverTracking, ScreenDriverEarnings,
		ScreenFleetDashboard, ScreenFleetLiveMap, ScreenFleetTrips, ScreenFleetFleet,
		ScreenFleetBilling, ScreenInbox,
	} {
		screens[s] = true
	}
	return FeatureFlags{Screens: screens}
}

// UseRemote reports whether the given screen should read from the remote backend.
func (f FeatureFlags) UseRemote(screen string) bool {
	return f.Enabled && f.Screens[screen]
}

// LoadFeatureFlags reads a YAML flag file on top of the defaults.
func LoadFeatureFlags(path string) (FeatureFlags, error) {
	flags := DefaultFeatureFlags()
	data, err := os.ReadFile(path)
	if err != nil {
		return flags, fmt.Errorf("read feature flags: %w", err)
	}
	var file FeatureFlags
	if err := yaml.Unmarshal(data, &file); err != nil {
		return flags, fmt.Errorf("parse feature flags: %w", err)
	}
	flags.Enabled = file.Enabled
	flags.OrgID = file.OrgID
	flags.TestDriverID = file.TestDriverID
	flags.TestManagerID = file.TestManagerID
	for screen, on := range file.Screens {
		flags.Screens[screen] = on
	}
	return flags, nil
}
