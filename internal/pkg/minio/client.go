package minio

import (
	"context"
	"os"
	"sync"

	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Client wraps the MinIO client
type Client struct {
	client *minio.Client
	config *Config
	logger *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient creates a new MinIO client. No request is made until the first call.
func NewClient(cfg *Config, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidArgument
	}
	if log == nil {
		log = logger.L()
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, WrapErrorWithMessage("NewClient", err, "invalid configuration")
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	switch cfg.BucketLookup {
	case BucketLookupDNS:
		opts.BucketLookup = minio.BucketLookupDNS
	case BucketLookupPath:
		opts.BucketLookup = minio.BucketLookupPath
	default:
		opts.BucketLookup = minio.BucketLookupAuto
	}

	minioClient, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, WrapErrorWithMessage("NewClient", err, "failed to create minio client")
	}
	if cfg.TraceEnabled {
		minioClient.TraceOn(os.Stderr)
	}

	log = log.Named("minio")
	log.Info("minio client initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
		zap.Bool("use_ssl", cfg.UseSSL),
	)

	return &Client{
		client: minioClient,
		config: cfg,
		logger: log,
	}, nil
}

// Config returns the client configuration
func (c *Client) Config() *Config {
	return c.config
}

// Ping checks the configured bucket is reachable
func (c *Client) Ping(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if _, err := c.client.BucketExists(ctx, c.config.Bucket); err != nil {
		return WrapErrorWithMessage("Ping", err, "failed to connect to minio server")
	}
	return nil
}

// Close marks the client closed; later calls fail with ErrClientClosed
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info("minio client closed")
	return nil
}

func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}
