package namingcache_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightstrip/internal/naming"
	"flightstrip/internal/namingcache"
	"flightstrip/internal/services"
)

func sampleScheme() naming.Scheme {
	return naming.Scheme{Kept: map[int]int{0: 100, 1: 26}, Separator: "_"}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "name_flugstreifen.json")
	store := namingcache.NewFileStore(path, nil)

	_, ok := store.Lookup("2020550")
	assert.False(t, ok, "missing file is a miss")

	require.NoError(t, store.Store("2020550", sampleScheme()))
	got, ok := store.Lookup("2020550")
	require.True(t, ok)
	assert.Equal(t, sampleScheme(), got)

	// A second instance sees the same data.
	other := namingcache.NewFileStore(path, nil)
	got, ok = other.Lookup("2020550")
	require.True(t, ok)
	assert.Equal(t, sampleScheme(), got)
}

func TestFileStoreLookupCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "name_flugstreifen.json")
	store := namingcache.NewFileStore(path, nil)

	_, ok := store.Lookup("2020550")
	assert.False(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))

	require.NoError(t, store.Store("2020550", sampleScheme()))
	_, ok = store.Lookup("2020550")
	assert.True(t, ok, "an existing file is left alone")
}

func TestFileStoreWritesCompatibleFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "name_flugstreifen.json")
	store := namingcache.NewFileStore(path, nil)
	require.NoError(t, store.Store("2020550", naming.Scheme{Kept: map[int]int{1: 5}, Separator: "&"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "{\n  \"2020550\": [\n    {\n      \"1\": 5\n    },\n    \"&\"\n  ]\n}\n"
	assert.Equal(t, want, string(data))
}

func TestFileStoreReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "name_flugstreifen.json")
	existing := `{"2022450": [{"0": 9, "1": 5}, "_"], "2021460": [{"2": 3}, "-"]}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	store := namingcache.NewFileStore(path, nil)
	got, ok := store.Lookup("2021460")
	require.True(t, ok)
	assert.Equal(t, naming.Scheme{Kept: map[int]int{2: 3}, Separator: "-"}, got)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFileStoreCorruptFileIsMissAndOverwritten(t *testing.T) {
	for name, contents := range map[string]string{
		"empty":     "",
		"garbage":   "{not json",
		"bad entry": `{"1": ["_"]}`,
		"no kept":   `{"1": [{}, "_"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "name_flugstreifen.json")
			require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
			store := namingcache.NewFileStore(path, nil)

			_, ok := store.Lookup("1")
			assert.False(t, ok)

			require.NoError(t, store.Store("2", sampleScheme()))
			got, ok := store.Lookup("2")
			require.True(t, ok)
			assert.Equal(t, sampleScheme(), got)
		})
	}
}

func TestFileStoreConcurrentStoresLoseNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "name_flugstreifen.json")
	stores := []*namingcache.FileStore{
		namingcache.NewFileStore(path, nil),
		namingcache.NewFileStore(path, nil),
	}

	const writers = 24
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store := stores[i%len(stores)]
			errs <- store.Store(fmt.Sprintf("%d", 1000+i), naming.Scheme{Kept: map[int]int{i % 3: i}, Separator: "_"})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	n, err := stores[0].Count()
	require.NoError(t, err)
	assert.Equal(t, writers, n)
}

func TestFileStoreRemoveListClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "naming.json")
	store := namingcache.NewFileStore(path, nil)
	require.NoError(t, store.Store("2", sampleScheme()))
	require.NoError(t, store.Store("1", sampleScheme()))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].Key)

	require.NoError(t, store.Remove("1"))
	err = store.Remove("1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrNotFound))

	require.NoError(t, store.Clear())
	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFileStoreRejectsEmptyInput(t *testing.T) {
	store := namingcache.NewFileStore(filepath.Join(t.TempDir(), "c.json"), nil)
	require.ErrorIs(t, store.Store(" ", sampleScheme()), services.ErrValidation)
	require.Error(t, store.Store("1", naming.Scheme{}))
	_, ok := store.Lookup("")
	assert.False(t, ok)
}
