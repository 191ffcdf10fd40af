package installed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound before the first install.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	s, err := NewFileRepository(t.TempDir()).Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)
}

// TestFileRepository_SaveLoad ensures Save followed by Load returns equal state.
func TestFileRepository_SaveLoad(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(t.TempDir())
	want := &State{
		Tag:         "new103",
		Asset:       "RnSApp_Windows_x64_new103.zip",
		InstalledAt: time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.Tag, got.Tag)
	require.Equal(t, want.Asset, got.Asset)
	require.True(t, want.InstalledAt.Equal(got.InstalledAt))
}
