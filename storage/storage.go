// Package storage reads and records waitlist entries.
package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"waitlist-intake/pkg/waitlist"
)

// Store is the persistent waitlist. Emails passed in are already normalized.
type Store interface {
	// Contains performs a single lookup by exact email.
	Contains(ctx context.Context, email string) (bool, error)
	// Add records email if absent and returns the stored entry.
	Add(ctx context.Context, email string) (*waitlist.Entry, error)
}

// Objects stores one JSON object per entry, either in a Cloud Storage bucket
// or, for local development, in a directory.
type Objects struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
	salt      []byte
}

// NewObjects creates an object store. When localPath is set the bucket is ignored.
func NewObjects(client *storage.Client, bucket, localPath string, salt []byte, logger *slog.Logger) *Objects {
	return &Objects{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
		salt:      salt,
	}
}

// EntryKey derives a stable object name from an email address. HMAC keeps
// addresses out of object listings.
func (s *Objects) EntryKey(email string) string {
	h := hmac.New(sha256.New, s.salt)
	h.Write([]byte(email))
	return fmt.Sprintf("entry-%s.json", hex.EncodeToString(h.Sum(nil)))
}

// Contains implements Store.
func (s *Objects) Contains(ctx context.Context, email string) (bool, error) {
	entry, err := s.load(ctx, s.EntryKey(email))
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return entry.Email == email, nil
}

// Add implements Store.
func (s *Objects) Add(ctx context.Context, email string) (*waitlist.Entry, error) {
	key := s.EntryKey(email)
	entry := &waitlist.Entry{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}

	created, err := s.create(ctx, key, data)
	if err != nil {
		return nil, err
	}
	if !created {
		s.logger.Debug("Waitlist entry already present", "key", key)
		return s.load(ctx, key)
	}

	s.logger.Info("Waitlist entry saved", "key", key, "email", waitlist.RedactEmail(email))
	return entry, nil
}

// create writes data under key only if nothing is stored there yet.
func (s *Objects) create(ctx context.Context, key string, data []byte) (bool, error) {
	if s.localPath != "" {
		f, err := os.OpenFile(filepath.Join(s.localPath, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			if os.IsExist(err) {
				return false, nil
			}
			return false, fmt.Errorf("create local entry: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return false, fmt.Errorf("write to local storage: %w", err)
		}
		if err := f.Close(); err != nil {
			return false, fmt.Errorf("close local entry: %w", err)
		}
		return true, nil
	}

	w := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			s.logger.Warn("Failed to close writer after error", "error", closeErr)
		}
		return false, fmt.Errorf("write to storage: %w", err)
	}
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return false, nil
		}
		return false, fmt.Errorf("close storage writer: %w", err)
	}
	return true, nil
}

func (s *Objects) load(ctx context.Context, key string) (*waitlist.Entry, error) {
	var data []byte

	if s.localPath != "" {
		var err error
		data, err = os.ReadFile(filepath.Join(s.localPath, key))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
	} else {
		r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotExist) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("open storage reader: %w", err)
		}
		defer func() {
			if closeErr := r.Close(); closeErr != nil {
				s.logger.Warn("Failed to close storage reader", "error", closeErr)
			}
		}()

		data, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read from storage: %w", err)
		}
	}

	var entry waitlist.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}

// Unconfigured is the store used when no backend is configured. Every
// call fails with Err so callers fail closed.
type Unconfigured struct {
	Err error
}

// Contains implements Store.
func (u Unconfigured) Contains(context.Context, string) (bool, error) {
	return false, u.Err
}

// Add implements Store.
func (u Unconfigured) Add(context.Context, string) (*waitlist.Entry, error) {
	return nil, u.Err
}

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("storage: object doesn't exist")

// IsNotFound checks if an error indicates an entry was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
