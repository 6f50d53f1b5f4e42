package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/regscout/regscout/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) config.RedisConfig {
	return config.RedisConfig{
		URL:          url,
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

func TestNewService(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		assert.Nil(t, NewService(config.RedisConfig{}))
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		assert.Nil(t, NewService(testConfig(addr)))
	})

	t.Run("plain address and url forms", func(t *testing.T) {
		mr := miniredis.RunT(t)

		for _, url := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
			svc := NewService(testConfig(url))
			require.NotNil(t, svc, url)
			assert.NoError(t, svc.Ping(context.Background()))
			svc.Close()
		}
	})
}

func TestSetGetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	svc := NewService(testConfig(mr.Addr()))
	require.NotNil(t, svc)
	defer svc.Close()

	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "session:abc", `{"id":"abc"}`, time.Hour))
	val, err := svc.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"abc"}`, val)
	assert.Equal(t, time.Hour, mr.TTL("session:abc"))

	require.NoError(t, svc.Delete(ctx, "session:abc"))
	_, err = svc.Get(ctx, "session:abc")
	assert.ErrorIs(t, err, ErrNil)
}
