package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vehicle/pkg/adapters/file"
	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/ports"
)

func TestFileStore_Contract(t *testing.T) {
	store, err := file.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ports.RunRecordStoreContract(t, store)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store, err := file.Open(dir)
	require.NoError(t, err)

	_, err = store.Append(context.Background(), domain.Record{Values: map[string]domain.Value{
		domain.KeyImage:     domain.Image(domain.NewFrame(2, 2, 3)),
		domain.KeyUserAngle: domain.Number(0.1),
	}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.FileExists(t, filepath.Join(dir, "record_0.json"))
	assert.FileExists(t, filepath.Join(dir, "0_cam-image_array.png"))
	assert.NoFileExists(t, filepath.Join(dir, ".lock"))

	matches, _ := filepath.Glob(filepath.Join(dir, "tmp-*"))
	assert.Empty(t, matches, "no temp files left behind")
}

func TestFileStore_ResumesIndexes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := file.Open(dir)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := store.Append(ctx, domain.Record{Values: map[string]domain.Value{"i": domain.Number(float64(i))}})
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	reopened, err := file.Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	idx, err := reopened.Append(ctx, domain.Record{})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestFileStore_ExclusiveWriter(t *testing.T) {
	dir := t.TempDir()
	first, err := file.Open(dir)
	require.NoError(t, err)
	defer first.Close()

	_, err = file.Open(dir)
	assert.ErrorIs(t, err, domain.ErrResourceLocked)

	ro, err := file.OpenReadOnly(dir)
	require.NoError(t, err)
	_, err = ro.Append(context.Background(), domain.Record{})
	assert.Error(t, err)
}

func TestFileStore_ReadOnlyMissing(t *testing.T) {
	_, err := file.OpenReadOnly(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
