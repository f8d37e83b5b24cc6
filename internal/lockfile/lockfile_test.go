package lockfile_test

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/oscwc/internal/lockfile"
)

func TestWith_RunsHandlerAndReleases(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "_lock")

	ran := false
	require.NoError(t, lockfile.With(path, lockfile.DefaultTimeout, func() error {
		ran = true

		return nil
	}))
	require.True(t, ran)

	// The lock must be reacquirable immediately after release.
	require.NoError(t, lockfile.With(path, lockfile.DefaultTimeout, func() error {
		return nil
	}))
}

func TestWith_ReleasesOnError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "_lock")
	boom := require.New(t)

	err := lockfile.With(path, lockfile.DefaultTimeout, func() error {
		return errBoom
	})
	boom.ErrorIs(err, errBoom)

	require.NoError(t, lockfile.With(path, lockfile.DefaultTimeout, func() error {
		return nil
	}))
}

func TestWith_ReentranceFailsFast(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "_lock")

	err := lockfile.With(path, lockfile.DefaultTimeout, func() error {
		return lockfile.With(path, 50*time.Millisecond, func() error {
			return nil
		})
	})
	require.ErrorIs(t, err, lockfile.ErrAlreadyLocked)
}

func TestWith_SerializesConcurrentCallers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "_lock")

	const goroutines = 8

	var (
		wg      sync.WaitGroup
		counter int64
		maxSeen int64
	)

	for range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := lockfile.With(path, 5*time.Second, func() error {
				n := atomic.AddInt64(&counter, 1)
				if n > atomic.LoadInt64(&maxSeen) {
					atomic.StoreInt64(&maxSeen, n)
				}

				time.Sleep(time.Millisecond)
				atomic.AddInt64(&counter, -1)

				return nil
			})
			require.NoError(t, err)
		}()
	}

	wg.Wait()
	require.Equal(t, int64(1), maxSeen, "concurrent callers must be serialized")
}

var errBoom = errBoomType{}

type errBoomType struct{}

func (errBoomType) Error() string { return "boom" }
