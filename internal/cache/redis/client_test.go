package redis

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

func TestClientKey(t *testing.T) {
	c := Wrap(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "")
	defer c.Close()

	assert.Equal(t, "fundy:lock:fundy:alert:cycle", c.Key("lock", "fundy:alert:cycle"))
	assert.Equal(t, "fundy:universe:ALL", c.Key("universe", "ALL"))

	s := NewSentStore(Wrap(c.Underlying(), "test"), 0)
	k := domain.AlertKey{SubscriberID: 9, Source: domain.SourceOKX, NativeSymbol: "BTC-USDT-SWAP", Bucket: 3600000}
	assert.Equal(t, "test:alert:sent:9:OKX:BTC-USDT-SWAP:3600000", s.key(k))
}

func TestHasPattern(t *testing.T) {
	assert.True(t, hasPattern("fundy:*"))
	assert.False(t, hasPattern("fundy:arbitrage"))
}
