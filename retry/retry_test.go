package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRetriesUntilBudgetExhausted(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		return errors.New("test error")
	}, WithMaxRetries(3), WithBaseWait(time.Millisecond*10))
	require.Error(t, err)
	assert.Equal(t, "test error", err.Error())
	assert.Equal(t, 3, count)
}

func TestDoStopsOnSuccess(t *testing.T) {
	ctx := context.Background()
	count := 0
	err := Do(ctx, func() error {
		count++
		if count < 2 {
			return errors.New("transient")
		}
		return nil
	}, WithMaxRetries(5), WithBaseWait(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	ctx := context.Background()
	count := 0
	base := errors.New("bad request")
	err := Do(ctx, func() error {
		count++
		return MarkPermanent(base)
	}, WithMaxRetries(5), WithBaseWait(time.Millisecond))
	require.Error(t, err)
	assert.Equal(t, base, err)
	assert.Equal(t, 1, count)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, func() error {
		return errors.New("transient")
	}, WithMaxRetries(3), WithBaseWait(time.Second))
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(MarkPermanent(errors.New("x"))))
	assert.False(t, IsPermanent(errors.New("x")))
	assert.False(t, IsPermanent(nil))
	assert.Nil(t, MarkPermanent(nil))
}
