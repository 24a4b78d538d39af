package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	if c.Matching.SameDeviceThreshold <= 0 || c.Matching.SameDeviceThreshold >= 1 {
		return fmt.Errorf("matching.same_device_threshold must be in (0,1), got %v", c.Matching.SameDeviceThreshold)
	}
	if c.Matching.CrossDeviceThreshold <= 0 || c.Matching.CrossDeviceThreshold >= 1 {
		return fmt.Errorf("matching.cross_device_threshold must be in (0,1), got %v", c.Matching.CrossDeviceThreshold)
	}
	if c.Matching.CrossDeviceThreshold > c.Matching.SameDeviceThreshold {
		return errors.New("matching.cross_device_threshold must not exceed matching.same_device_threshold")
	}
	if c.Retention.DuplicateWindowDays > c.Retention.ExpiryDays {
		return errors.New("retention.duplicate_window_days must not exceed retention.expiry_days")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
