package rpcengine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonotonicIDsIncrementFrom1(t *testing.T) {
	e := NewSequential(Monotonic)
	id1, err := e.NextID()
	require.NoError(t, err)
	id2, err := e.NextID()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id1)
	assert.Equal(t, uint32(2), id2)
}

func TestRandomXIDsDiffer(t *testing.T) {
	e := New(RandomXID, Strict)
	id1, err := e.NextID()
	require.NoError(t, err)
	id2, err := e.NextID()
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

// TestCorrelationOutOfOrderReplies reproduces spec §8 property 7: the
// server emits replies for ids {a,b,c} out of order (b,a,c) and each
// rpc(id) call must still return the reply bearing its own id.
func TestCorrelationOutOfOrderReplies(t *testing.T) {
	e := New(Monotonic, Strict)

	chA, err := e.Register(10)
	require.NoError(t, err)
	chB, err := e.Register(20)
	require.NoError(t, err)
	chC, err := e.Register(30)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := e.Deliver(20, []byte("reply-b"))
		assert.NoError(t, err)
		_, err = e.Deliver(10, []byte("reply-a"))
		assert.NoError(t, err)
		_, err = e.Deliver(30, []byte("reply-c"))
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.Equal(t, []byte("reply-a"), <-chA)
	assert.Equal(t, []byte("reply-b"), <-chB)
	assert.Equal(t, []byte("reply-c"), <-chC)
}

func TestDuplicateRegisterRejected(t *testing.T) {
	e := New(Monotonic, Skip)
	_, err := e.Register(1)
	require.NoError(t, err)
	_, err = e.Register(1)
	require.Error(t, err)
}

func TestSkipPolicyDropsMismatch(t *testing.T) {
	e := New(Monotonic, Skip)
	delivered, err := e.Deliver(999, []byte("x"))
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestStrictPolicyRejectsMismatch(t *testing.T) {
	e := New(Monotonic, Strict)
	_, err := e.Deliver(999, []byte("x"))
	require.Error(t, err)
}

func TestAbandonClearsPending(t *testing.T) {
	e := New(Monotonic, Skip)
	_, err := e.Register(1)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Pending())
	e.Abandon(1)
	assert.Equal(t, 0, e.Pending())
}
