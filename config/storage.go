package config

import "fmt"

// AuditConfig defines settings for the audit event log.
type AuditConfig struct {
	// Backend selects the log store type: "sqlite" or "memory".
	Backend string `json:"backend"`
	// Path is the file location of the SQLite log.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		c.Path = "audit.db"
	}
}

// Validate checks mandatory fields.
func (c AuditConfig) Validate() error {
	if c.Backend != "sqlite" && c.Backend != "memory" {
		return fmt.Errorf("unknown audit backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("audit path is required")
	}
	return nil
}

// StorageConfig defines settings for the job/offer/notification store.
type StorageConfig struct {
	// Backend selects the store type: "sqlite" or "memory".
	Backend string `json:"backend"`
	// Path is the file location of the SQLite database.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StorageConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		c.Path = "dispatchd.db"
	}
}

// Validate checks mandatory fields.
func (c StorageConfig) Validate() error {
	if c.Backend != "sqlite" && c.Backend != "memory" {
		return fmt.Errorf("unknown storage backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	return nil
}
