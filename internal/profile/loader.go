package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is the polling interval while waiting for the profile
// file lock.
const lockRetryDelay = 50 * time.Millisecond

// Load reads and validates the house profile at path. The file is read
// under a shared advisory lock so a concurrent Save from another process
// cannot produce a torn read.
func Load(ctx context.Context, path string) (*HouseProfile, error) {
	lock := flock.New(lockPath(path))
	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquiring profile read lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquiring profile read lock: not acquired")
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, path)
		}
		return nil, fmt.Errorf("reading house profile: %w", err)
	}

	var p HouseProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Save writes the profile to path atomically: it marshals to a temp file
// in the same directory and renames over the target while holding an
// exclusive advisory lock.
func Save(ctx context.Context, path string, p *HouseProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating profile directory: %w", err)
		}
	}

	lock := flock.New(lockPath(path))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring profile write lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquiring profile write lock: not acquired")
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding house profile: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".profile-*.json")
	if err != nil {
		return fmt.Errorf("creating temp profile file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing house profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp profile file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing house profile: %w", err)
	}

	return nil
}

// lockPath returns the advisory lock file used for path. Locking a
// sidecar file instead of the target keeps the rename in Save safe.
func lockPath(path string) string {
	return path + ".lock"
}
