package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

func TestMemoryHost_SpecsVisibleAfterRefresh(t *testing.T) {
	host := NewMemoryHost(zaptest.NewLogger(t))
	ctx := context.Background()

	host.AddKernelSpec("remote-a", map[string]any{MetadataClusterUUID: "a"})

	err := host.ChangeKernel(ctx, "remote-a")
	assert.ErrorIs(t, err, ErrUnknownKernel)
	_, err = host.KernelMetadata(ctx, "remote-a")
	assert.ErrorIs(t, err, ErrUnknownKernel)

	require.NoError(t, host.RefreshKernelSpecs(ctx))
	require.NoError(t, host.ChangeKernel(ctx, "remote-a"))

	kernel, err := host.CurrentKernel(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.KernelName("remote-a"), kernel)

	metadata, err := host.KernelMetadata(ctx, "remote-a")
	require.NoError(t, err)
	uuid, ok := ClusterFromMetadata(metadata)
	assert.True(t, ok)
	assert.Equal(t, types.ClusterUUID("a"), uuid)
}

func TestMemoryHost_PublishesOnlyRealChanges(t *testing.T) {
	host := NewMemoryHost(zaptest.NewLogger(t))
	ctx := context.Background()
	host.AddKernelSpec("python3", nil)
	require.NoError(t, host.RefreshKernelSpecs(ctx))

	var changes []Change
	host.Subscribe(func(c Change) { changes = append(changes, c) })

	require.NoError(t, host.ChangeKernel(ctx, "python3"))
	require.NoError(t, host.ChangeKernel(ctx, "python3"))
	require.NoError(t, host.ShutdownSession(ctx))
	require.NoError(t, host.ShutdownSession(ctx))

	assert.Equal(t, []Change{{Kernel: "python3"}, {Kernel: ""}}, changes)
}

func TestMemoryHost_SessionID(t *testing.T) {
	host := NewMemoryHost(zaptest.NewLogger(t))
	assert.Empty(t, host.SessionID())

	host.SetKernel("python3")
	first := host.SessionID()
	assert.NotEmpty(t, first)

	host.SetKernel("other")
	assert.Equal(t, first, host.SessionID())

	host.SetKernel("")
	assert.Empty(t, host.SessionID())

	host.SetKernel("python3")
	assert.NotEqual(t, first, host.SessionID())
}

func TestMemoryHost_MetadataIsCopied(t *testing.T) {
	host := NewMemoryHost(zaptest.NewLogger(t))
	ctx := context.Background()
	host.AddKernelSpec("k", map[string]any{MetadataClusterUUID: "a"})
	require.NoError(t, host.RefreshKernelSpecs(ctx))

	metadata, err := host.KernelMetadata(ctx, "k")
	require.NoError(t, err)
	metadata[MetadataClusterUUID] = "b"

	again, err := host.KernelMetadata(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "a", again[MetadataClusterUUID])
}

func TestClusterFromMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		want     types.ClusterUUID
		ok       bool
	}{
		{"nil metadata", nil, "", false},
		{"missing key", map[string]any{"other": "x"}, "", false},
		{"empty value", map[string]any{MetadataClusterUUID: ""}, "", false},
		{"wrong type", map[string]any{MetadataClusterUUID: 12}, "", false},
		{"present", map[string]any{MetadataClusterUUID: "abc"}, "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClusterFromMetadata(tt.metadata)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
