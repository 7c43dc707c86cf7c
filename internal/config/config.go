// Package config handles configuration for the pocket-money ledger,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the ledger application.
//
// Fields:
//   - DatabasePath: path of the local SQLite database file.
//   - S3Region / S3BaseEndpoint / S3Bucket / S3Prefix: the shared remote
//     folder, any S3-compatible backend works.
//   - S3AccessKey / S3SecretKey: credentials for that backend.
//   - AutoSyncDebounce: quiet window before a data change triggers a sync.
//   - QueueInterval: how often the retry queue drains in the background.
//   - RetentionCount: remote backups to keep, 0 keeps everything.
//   - AppVersion: written into the shared-folder descriptor.
type Config struct {
	DatabasePath     string
	S3Region         string
	S3BaseEndpoint   string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3Prefix         string
	AutoSyncDebounce time.Duration
	QueueInterval    time.Duration
	RetentionCount   int
	AppVersion       string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: The credentials are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "pocketledger.db"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "pocketledger"
	c.S3Prefix = "family"
	c.AutoSyncDebounce = 5 * time.Second
	c.QueueInterval = 30 * time.Second
	c.RetentionCount = 10
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
