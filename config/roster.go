package config

import (
	"time"

	"github.com/villaops/dispatchd/core/staff"
)

// StaffEntry describes one roster member in the configuration file.
type StaffEntry struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	Skills       []string `json:"skills"`
	Active       *bool    `json:"active"`
	Availability []struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"availability"`
}

// RosterConfig lists the staff members known to the dispatcher. In a
// full deployment this would come from the staff service; the config
// file keeps single-node setups self-contained.
type RosterConfig struct {
	Staff []StaffEntry `json:"staff"`
}

// Build materializes the configured roster.
func (c RosterConfig) Build() *staff.Roster {
	roster := staff.NewRoster()
	for _, e := range c.Staff {
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		roster.Add(staff.Member{
			ID:     e.ID,
			Name:   e.Name,
			Role:   e.Role,
			Skills: e.Skills,
			Active: active,
		})
		if len(e.Availability) > 0 {
			windows := make([]staff.AvailabilityWindow, 0, len(e.Availability))
			for _, w := range e.Availability {
				windows = append(windows, staff.AvailabilityWindow{Start: w.Start, End: w.End})
			}
			roster.SetAvailability(e.ID, windows)
		}
	}
	return roster
}
