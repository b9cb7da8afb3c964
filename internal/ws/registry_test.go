package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryBindResolve(t *testing.T) {
	r := NewRegistry()
	c := NewClient(&fakeConn{}, "127.0.0.1:1000", nil)

	_, ok := r.Resolve(1)
	require.False(t, ok)

	r.Bind(1, c)
	got, ok := r.Resolve(1)
	require.True(t, ok)
	require.Same(t, c, got)
	require.Equal(t, 1, r.Count())
}

func TestRegistryRebindReplaces(t *testing.T) {
	r := NewRegistry()
	old := NewClient(&fakeConn{}, "127.0.0.1:1000", nil)
	fresh := NewClient(&fakeConn{}, "127.0.0.1:2000", nil)

	r.Bind(1, old)
	r.Bind(1, fresh)

	got, ok := r.Resolve(1)
	require.True(t, ok)
	require.Same(t, fresh, got)
	require.Equal(t, 1, r.Count())
}

func TestRegistryStaleUnbindKeepsNewSession(t *testing.T) {
	r := NewRegistry()
	old := NewClient(&fakeConn{}, "127.0.0.1:1000", nil)
	fresh := NewClient(&fakeConn{}, "127.0.0.1:2000", nil)

	r.Bind(1, old)
	r.Bind(1, fresh)

	// The old connection's deferred cleanup fires after the reconnect.
	r.Unbind(1, old)
	got, ok := r.Resolve(1)
	require.True(t, ok)
	require.Same(t, fresh, got)

	r.Unbind(1, fresh)
	_, ok = r.Resolve(1)
	require.False(t, ok)
	require.Equal(t, 0, r.Count())
}
