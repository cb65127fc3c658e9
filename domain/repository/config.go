// Package repository holds the repository URL model and the persisted
// repository configuration.
package repository

import (
	"context"
	"errors"
)

// Errors returned by repository stores and lifecycle operations.
var (
	ErrInvalidURL  = errors.New("invalid repository url")
	ErrNotTracked  = errors.New("repository not tracked")
	ErrNotFound    = errors.New("not found")
	ErrInvalidName = errors.New("invalid project name")
)

// Config is the persisted form of a tracked repository.
type Config struct {
	URL         string
	OriginalURL string
	Username    string
	Password    string
	Cloned      bool
	ProjectName string
	URLType     URLType
}

// SourceURL returns the URL a record should be rebuilt from.
func (c Config) SourceURL() string {
	if c.OriginalURL != "" {
		return c.OriginalURL
	}
	return c.URL
}

// ConfigStore persists one Config per project name.
type ConfigStore interface {
	Path(projectName string) string
	Exists(projectName string) bool
	Save(ctx context.Context, cfg Config) error
	Load(ctx context.Context, projectName string) (Config, error)
	Delete(ctx context.Context, projectName string) error
	LoadAll(ctx context.Context) ([]Config, error)
}

// CredentialStore keeps repository passwords outside the config files.
type CredentialStore interface {
	Get(projectName string) (string, error)
	Set(projectName, secret string) error
	Delete(projectName string) error
}
