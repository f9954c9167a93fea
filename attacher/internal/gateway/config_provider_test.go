package gateway

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConfigProvider_Memoizes(t *testing.T) {
	fake := &fakeGateway{config: Config{AutoAttach: true}}
	provider := NewConfigProvider(fake, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		cfg, err := provider.Get(context.Background())
		require.NoError(t, err)
		assert.True(t, cfg.AutoAttach)
	}
	assert.Equal(t, 1, fake.configs)
}

func TestConfigProvider_RetriesAfterFailure(t *testing.T) {
	fake := &fakeGateway{configErr: errFake}
	provider := NewConfigProvider(fake, zaptest.NewLogger(t))

	_, err := provider.Get(context.Background())
	assert.ErrorIs(t, err, errFake)

	fake.mu.Lock()
	fake.configErr = nil
	fake.config = Config{CatalogMode: true}
	fake.mu.Unlock()

	cfg, err := provider.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.CatalogMode)
	assert.Equal(t, 2, fake.configs)
}

func TestConfigProvider_ConcurrentCallersShareFetch(t *testing.T) {
	fake := &fakeGateway{config: Config{AutoAttach: true}, release: make(chan struct{})}
	provider := NewConfigProvider(fake, zaptest.NewLogger(t))

	const callers = 8
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			cfg, err := provider.Get(context.Background())
			assert.NoError(t, err)
			assert.True(t, cfg.AutoAttach)
		}()
	}
	started.Wait()
	close(fake.release)
	done.Wait()

	assert.LessOrEqual(t, fake.configs, callers)
	cfg, err := provider.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.AutoAttach)
}

func TestConfigProvider_Reset(t *testing.T) {
	fake := &fakeGateway{config: Config{AutoAttach: true}}
	provider := NewConfigProvider(fake, zaptest.NewLogger(t))

	_, err := provider.Get(context.Background())
	require.NoError(t, err)
	provider.Reset()
	_, err = provider.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fake.configs)
}

func TestStaticConfigProvider(t *testing.T) {
	cfg, err := StaticConfigProvider{AllowLocalExecution: true}.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.AllowLocalExecution)
}
