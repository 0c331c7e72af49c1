// Package blob selects a blob storage backend and re-exports the core
// contract so callers never import a concrete backend.
package blob

import (
	"context"
	"fmt"

	"mapstore/internal/blob/core"
	"mapstore/internal/infra/blob/fs"
	"mapstore/internal/infra/blob/memory"
	"mapstore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound reports a missing key.
	ErrNotFound = core.ErrNotFound
	// ErrExists reports a create-only write to a taken key.
	ErrExists = core.ErrExists
)

// Config selects and configures a backend. Field tags are read by
// caarlos0/env under the MAPSTORE_BLOB_ prefix.
type Config struct {
	Driver string   `env:"DRIVER" envDefault:"fs"`
	FSRoot string   `env:"FS_ROOT" envDefault:"./blobdata"`
	S3     S3Config `envPrefix:"S3_"`
}

// S3Config holds the bucket settings for the s3 driver. Credentials come from
// the default AWS chain (AWS_ACCESS_KEY_ID and friends).
type S3Config struct {
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"ENDPOINT"`
	PathStyle bool   `env:"PATH_STYLE"`
}

// Open builds the backend named by cfg.Driver (fs when empty).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
