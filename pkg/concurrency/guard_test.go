package concurrency

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_RejectsConcurrentSession(t *testing.T) {
	g := NewGuard()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- g.Execute("10.0.0.2:5000", func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	err := g.Execute("10.0.0.3:6000", func() error {
		t.Error("second session must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorContains(t, err, "10.0.0.2:5000")

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, g.Execute("10.0.0.3:6000", func() error { return nil }), "guard is free once the session ends")
}

func TestGuard_ReturnsTaskError(t *testing.T) {
	g := NewGuard()
	boom := errors.New("boom")
	assert.ErrorIs(t, g.Execute("a", func() error { return boom }), boom)
	assert.NoError(t, g.Execute("b", func() error { return nil }), "guard is released after a failed session")
}
