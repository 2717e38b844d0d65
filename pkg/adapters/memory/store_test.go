package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/merits/pkg/adapters/memory"
	"github.com/aretw0/merits/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.SequenceStore = (*memory.Store)(nil)
	_ ports.Locker        = memory.NoopLocker{}
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSequenceStoreContract(t, store)
}

func TestNoopLocker(t *testing.T) {
	unlock, err := memory.NoopLocker{}.Lock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	assert.NoError(t, unlock(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = memory.NoopLocker{}.Lock(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
