package pgoose_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgoose"
)

func TestFuture(t *testing.T) {
	ctx := context.Background()

	t.Run("Wait", func(t *testing.T) {
		f := pgoose.Go(func() (int, error) { return 42, nil })
		v, err := f.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		<-f.Done()
	})

	t.Run("Error", func(t *testing.T) {
		boom := errors.New("boom")
		f := pgoose.Go(func() (string, error) { return "", boom })
		_, err := f.Wait(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Then", func(t *testing.T) {
		boom := errors.New("boom")
		done := make(chan error, 1)
		pgoose.Resolved(1, boom).Then(func(v int, err error) {
			assert.Equal(t, 1, v)
			done <- err
		})
		select {
		case err := <-done:
			assert.ErrorIs(t, err, boom)
		case <-time.After(time.Second):
			t.Fatal("callback was not called")
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)
		f := pgoose.Go(func() (int, error) {
			<-block
			return 1, nil
		})
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := f.Wait(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
