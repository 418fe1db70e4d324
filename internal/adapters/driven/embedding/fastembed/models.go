// Package fastembed provides an in-process embedding service backed by
// ONNX models through fastembed-go. It needs cgo; builds without cgo get a
// stub that reports ErrUnavailable.
package fastembed

import (
	"errors"
	"os"
	"path/filepath"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "BAAI/bge-small-en-v1.5"

// ErrUnavailable is returned by builds without cgo.
var ErrUnavailable = errors.New("fastembed: not available (binary built without cgo)")

// Config holds configuration for the FastEmbed service.
type Config struct {
	// Model is the model name, e.g. BAAI/bge-small-en-v1.5.
	Model string

	// CacheDir holds downloaded model files. Defaults to ~/.recall/models.
	CacheDir string

	// MaxLength is the maximum input sequence length. Defaults to 512.
	MaxLength int

	// BatchSize bounds each ONNX inference call. Defaults to 64.
	BatchSize int
}

// dimensions maps supported model names to vector sizes.
var dimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
}

// Dimensions returns the vector size of a supported model.
func Dimensions(model string) (int, bool) {
	d, ok := dimensions[model]
	return d, ok
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.CacheDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.CacheDir = filepath.Join(home, ".recall", "models")
		} else {
			c.CacheDir = filepath.Join(".", "local_cache")
		}
	}
	if c.MaxLength == 0 {
		c.MaxLength = 512
	}
	if c.BatchSize == 0 {
		c.BatchSize = 64
	}
	return c
}
