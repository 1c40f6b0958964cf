package legislation

import (
	"os"
	"path/filepath"
	"testing"

	"parlwatch-backend/lib/scrapers/chambre"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(t.TempDir(), "2024-2025")
	require.NoError(t, store.Load())
	require.Equal(t, 0, store.Len())
}

func TestStorePersistRoundtrip(t *testing.T) {
	dir := t.TempDir()

	store := NewStore(dir, "2024-2025")
	store.Put(chambre.LegislationItem{LawNumber: "03.25", Title: "a", Stage: chambre.StageFirstReading})
	store.Put(chambre.LegislationItem{LawNumber: "14.25", Title: "b", Stage: chambre.StageSecondReading})
	require.NoError(t, store.Persist())

	require.FileExists(t, filepath.Join(dir, "extracted-data-2024-2025.json"))

	reloaded := NewStore(dir, "2024-2025")
	require.NoError(t, reloaded.Load())
	require.Equal(t, 2, reloaded.Len())

	diff := cmp.Diff(store.Items(), reloaded.Items())
	require.Empty(t, diff)
}

func TestStoreReplaceKeepsPosition(t *testing.T) {
	store := NewStore(t.TempDir(), "2024-2025")
	store.Put(chambre.LegislationItem{LawNumber: "03.25", Title: "first"})
	store.Put(chambre.LegislationItem{LawNumber: "14.25", Title: "second"})

	store.Put(chambre.LegislationItem{LawNumber: "03.25", Title: "rescraped"})

	items := store.Items()
	require.Len(t, items, 2)
	require.Equal(t, "03.25", items[0].LawNumber)
	require.Equal(t, "rescraped", items[0].Title)
}

func TestStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extracted-data-2024-2025.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	store := NewStore(dir, "2024-2025")
	err := store.Load()
	require.Error(t, err)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "decode", storeErr.Op)
}

func TestReadDatasetMissing(t *testing.T) {
	dataset, err := ReadDataset(t.TempDir(), "2030")
	require.NoError(t, err)
	require.Equal(t, "2030", dataset.CurrentYear)
	require.Empty(t, dataset.Data)
}
