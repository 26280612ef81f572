package minio

import (
	"errors"
	"strings"
	"time"
)

// BucketLookupType represents the type of bucket lookup
type BucketLookupType string

const (
	BucketLookupAuto BucketLookupType = "auto"
	BucketLookupDNS  BucketLookupType = "dns"
	BucketLookupPath BucketLookupType = "path"
)

// Config represents the configuration for the object storage client
type Config struct {
	// Endpoint is the S3-compatible endpoint, e.g. "localhost:9000"
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	Region          string `mapstructure:"region"`
	UseSSL          bool   `mapstructure:"use_ssl"`

	BucketLookup BucketLookupType `mapstructure:"bucket_lookup"`

	// Bucket holds the gallery pictures, Prefix is prepended to every object key
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`

	TraceEnabled   bool          `mapstructure:"trace_enabled"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: endpoint is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("minio: access key ID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("minio: secret access key is required")
	}
	if c.Bucket == "" {
		return errors.New("minio: bucket is required")
	}

	if c.BucketLookup != "" &&
		c.BucketLookup != BucketLookupAuto &&
		c.BucketLookup != BucketLookupDNS &&
		c.BucketLookup != BucketLookupPath {
		return errors.New("minio: invalid bucket lookup type")
	}

	return nil
}

// SetDefaults sets default values for unspecified configuration fields
func (c *Config) SetDefaults() {
	if c.BucketLookup == "" {
		c.BucketLookup = BucketLookupAuto
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Endpoint:       "localhost:9000",
		BucketLookup:   BucketLookupAuto,
		Bucket:         "gallery",
		Prefix:         "uploads",
		RequestTimeout: 30 * time.Second,
	}
}
