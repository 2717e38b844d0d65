package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSequenceStoreContract runs a suite of tests to verify that a SequenceStore
// implementation adheres to the defined interface contract.
func RunSequenceStoreContract(t *testing.T, store SequenceStore) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		ids := map[string]int{"STOP.csv": 12, "MCT.csv": 3}
		require.NoError(t, store.Save(ctx, key, ids))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, ids, loaded)

		// The store keeps its own copy.
		ids["STOP.csv"] = 99
		loaded, err = store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 12, loaded["STOP.csv"])
	})

	t.Run("Save overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, map[string]int{"STOP.csv": 20}))
		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"STOP.csv": 20}, loaded)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, ErrSequenceNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, map[string]int{"STOP.csv": 1}))
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, ErrSequenceNotFound, "Load after Delete should return ErrSequenceNotFound")

		assert.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		k1, k2 := key+"-1", key+"-2"
		require.NoError(t, store.Save(ctx, k1, map[string]int{"A.csv": 1}))
		require.NoError(t, store.Save(ctx, k2, map[string]int{"B.csv": 2}))
		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}
