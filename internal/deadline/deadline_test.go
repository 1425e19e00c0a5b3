package deadline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocc/portofcall-sub006/internal/result"
)

func TestRunReturnsTimeoutWhenSlower(t *testing.T) {
	ctx, cancel := New(context.Background(), 20)
	defer cancel()

	err := Run(ctx, func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	require.Error(t, err)
	var rerr *result.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, result.KindTimeout, rerr.Kind)
}

func TestRunReturnsResultWhenFaster(t *testing.T) {
	ctx, cancel := New(context.Background(), 200)
	defer cancel()

	called := false
	err := Run(ctx, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestDefaultTimeoutWhenZero(t *testing.T) {
	ctx, cancel := New(context.Background(), 0)
	defer cancel()
	dl, ok := Deadline(ctx)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(10*time.Second), dl, time.Second)
}
