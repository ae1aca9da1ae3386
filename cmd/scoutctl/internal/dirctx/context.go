package dirctx

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/katlaang/pestscan-sub000/pkg/sdk"
)

const (
	// ScoutFileName is the name of the context file
	ScoutFileName = ".scout"
	// ScoutFileVersion is the current schema version
	ScoutFileVersion = "1"
)

// DirectoryContext binds a working directory to one farm and remembers
// where delta sync left off.
type DirectoryContext struct {
	Version   string         `json:"version"`
	FarmID    string         `json:"farm_id"`
	ServerURL string         `json:"server_url"`
	Watermark *sdk.Watermark `json:"watermark,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Validate checks if the DirectoryContext is valid
func (dc *DirectoryContext) Validate() error {
	if dc.Version != ScoutFileVersion {
		return fmt.Errorf("unsupported .scout file version: %s (expected %s)", dc.Version, ScoutFileVersion)
	}

	if dc.FarmID == "" {
		return fmt.Errorf("farm_id is required")
	}

	if _, err := uuid.Parse(dc.FarmID); err != nil {
		return fmt.Errorf("invalid farm_id format: %w", err)
	}

	if dc.Watermark != nil && dc.Watermark.Cursor < 0 {
		return fmt.Errorf("watermark cursor must not be negative")
	}

	return nil
}

// ReadScoutContext reads the .scout file from the current directory
// Returns nil, nil if the file doesn't exist
// Returns nil, error if the file is corrupted or invalid
func ReadScoutContext() (*DirectoryContext, error) {
	data, err := os.ReadFile(ScoutFileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No context file, not an error
		}
		return nil, fmt.Errorf("failed to read .scout file: %w", err)
	}

	var ctx DirectoryContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("corrupted .scout file (invalid JSON): %w", err)
	}

	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid .scout file: %w", err)
	}

	return &ctx, nil
}

// WriteScoutContext writes the directory context to .scout file atomically
// Uses temp file + rename pattern for atomic writes on POSIX systems
func WriteScoutContext(ctx *DirectoryContext) error {
	if err := ctx.Validate(); err != nil {
		return fmt.Errorf("invalid context: %w", err)
	}

	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	data = append(data, '\n')

	tmpPath := ScoutFileName + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write .scout.tmp: %w", err)
	}

	if err := os.Rename(tmpPath, ScoutFileName); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename .scout.tmp to .scout: %w", err)
	}

	return nil
}

// ResolveFarmID applies priority: an explicit --farm flag, then the .scout
// context, then an error.
func ResolveFarmID(explicit string, ctx *DirectoryContext) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if ctx != nil && ctx.FarmID != "" {
		return ctx.FarmID, nil
	}
	return "", fmt.Errorf("farm identifier required: specify --farm or run in a directory with .scout context")
}

// GetScoutFilePath returns the absolute path to the .scout file in the current directory
func GetScoutFilePath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return filepath.Join(cwd, ScoutFileName), nil
}
