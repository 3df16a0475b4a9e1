// Package artifact persists trained model blobs keyed by clinic.
package artifact

import (
	"context"
	"encoding"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Nutonspeed/BN-Aura/internal/config"
)

// Store reads and writes opaque artifacts. Writes overwrite unconditionally.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	// Load returns ErrNotFound if the artifact does not exist.
	Load(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Location describes where key lives, for log and report output.
	Location(key string) string
}

// New builds the store selected by cfg. dir is the output directory for the
// file backend and the blob name prefix for the azure backend.
func New(cfg *config.StorageConfig, dir string, log logrus.FieldLogger) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(dir), nil
	case config.BackendAzure:
		return NewBlobStore(cfg, dir, log)
	}
	return nil, fmt.Errorf("artifact: unknown backend %q", cfg.Backend)
}

// Key builds the artifact name for a clinic, e.g. Key("churn_model", "c1", "gob")
// is "churn_model_c1.gob".
func Key(prefix, clinic, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, clinic, ext)
}

// SaveBinary marshals v and saves it under key.
func SaveBinary(ctx context.Context, s Store, key string, v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Save(ctx, key, data)
}

// LoadBinary loads key and unmarshals it into v.
func LoadBinary(ctx context.Context, s Store, key string, v encoding.BinaryUnmarshaler) error {
	data, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := v.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return ErrInvalidKey
	}
	return nil
}
