package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Matching.SameDeviceThreshold == 0 {
		c.Matching.SameDeviceThreshold = defaultSameDeviceThreshold
	}
	if c.Matching.CrossDeviceThreshold == 0 {
		c.Matching.CrossDeviceThreshold = defaultCrossDeviceThreshold
	}
	if c.Matching.CandidateLimit <= 0 {
		c.Matching.CandidateLimit = defaultCandidateLimit
	}
	if c.Collection.ModuleTimeoutMillis <= 0 {
		c.Collection.ModuleTimeoutMillis = defaultModuleTimeoutMillis
	}
	if c.Retention.DuplicateWindowDays <= 0 {
		c.Retention.DuplicateWindowDays = defaultDuplicateWindowDays
	}
	if c.Retention.ExpiryDays <= 0 {
		c.Retention.ExpiryDays = defaultExpiryDays
	}
	if c.Retention.TokenIdleDays <= 0 {
		c.Retention.TokenIdleDays = defaultTokenIdleDays
	}
	if c.Retention.SweepIntervalSecs <= 0 {
		c.Retention.SweepIntervalSecs = defaultSweepIntervalSecs
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = defaultRequestsPerMinute
	}
	return nil
}
