package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithMemoryStorage selects the in-memory storage backend (for testing)
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.Storage = StorageBackendConfig{
			Type:   "memory",
			Config: map[string]interface{}{},
		}
		return nil
	}
}

// WithFilesystemStorage selects the filesystem storage backend
func WithFilesystemStorage(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.Storage = StorageBackendConfig{
			Type: "fs",
			Config: map[string]interface{}{
				"base_dir": baseDir,
			},
		}
		return nil
	}
}

// WithS3Storage selects the S3 storage backend
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.Storage = StorageBackendConfig{
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
			},
		}
		return nil
	}
}

// WithS3Credentials sets credentials on an already-selected S3 or MinIO backend
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		if c.Storage.Type != "s3" && c.Storage.Type != "minio" {
			return fmt.Errorf("credentials require an s3 or minio storage backend, got: %s", c.Storage.Type)
		}
		c.Storage.Config["access_key_id"] = accessKeyID
		c.Storage.Config["secret_access_key"] = secretAccessKey
		return nil
	}
}

// WithS3Endpoint sets a custom S3 endpoint (for MinIO, LocalStack, etc.)
func WithS3Endpoint(endpoint string, useSSL, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		if c.Storage.Type != "s3" {
			return fmt.Errorf("endpoint override requires an s3 storage backend, got: %s", c.Storage.Type)
		}
		c.Storage.Config["endpoint"] = endpoint
		c.Storage.Config["use_ssl"] = useSSL
		c.Storage.Config["use_path_style"] = usePathStyle
		return nil
	}
}

// WithMinioStorage selects the native MinIO storage backend
func WithMinioStorage(endpoint, bucket string, useSSL bool) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("MinIO bucket cannot be empty")
		}
		if endpoint == "" {
			endpoint = "localhost:9000"
		}
		c.Storage = StorageBackendConfig{
			Type: "minio",
			Config: map[string]interface{}{
				"endpoint": endpoint,
				"bucket":   bucket,
				"use_ssl":  useSSL,
			},
		}
		return nil
	}
}

// WithOTLPEndpoint sets the OTLP/HTTP collector endpoint for tracing
func WithOTLPEndpoint(endpoint string) Option {
	return func(c *ServerConfig) error {
		c.OTLPEndpoint = endpoint
		return nil
	}
}

// WithDefaults is a convenience option that resets the config to library defaults
func WithDefaults() Option {
	return func(c *ServerConfig) error {
		*c = defaults()
		return nil
	}
}
