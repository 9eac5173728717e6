// Package lock provides cross-process exclusive locks keyed by environment
// identity, so two migration jobs never touch the same environment at once.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/gofrs/flock"
)

// ErrLocked means another process holds the lock.
var ErrLocked = errors.New("environment is locked by another job")

// LockedError names the identity that could not be locked.
type LockedError struct {
	Identity string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%v: %s", ErrLocked, e.Identity)
}

func (e *LockedError) Is(target error) bool { return target == ErrLocked }

// DefaultDir returns the lock directory under the user cache directory.
func DefaultDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache dir: %w", err)
	}
	return filepath.Join(cache, "ydl", "locks"), nil
}

// Path returns the lock file for identity inside dir.
func Path(dir, identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return filepath.Join(dir, hex.EncodeToString(sum[:8])+".lock")
}

// Acquire takes the locks of all identities without blocking. Identities
// are locked in sorted order; if any is held elsewhere, the ones already
// taken are released and a *LockedError is returned. The returned func
// releases every lock.
func Acquire(dir string, identities ...string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}

	ids := slices.Clone(identities)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	held := make([]*flock.Flock, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Unlock()
		}
	}
	for _, id := range ids {
		fl := flock.New(Path(dir, id))
		locked, err := fl.TryLock()
		if err != nil {
			release()
			return nil, fmt.Errorf("acquiring lock for %s: %w", id, err)
		}
		if !locked {
			release()
			return nil, &LockedError{Identity: id}
		}
		held = append(held, fl)
	}
	return release, nil
}
