package config

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string          `yaml:"level"`        // debug, info, warn, error
	FileEnabled bool            `yaml:"file_enabled"` // also write JSON lines under Dir
	Dir         string          `yaml:"dir"`
	Categories  map[string]bool `yaml:"categories,omitempty"` // per-category toggles, missing = enabled
}

// IsCategoryEnabled returns whether logging is enabled for a category.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
