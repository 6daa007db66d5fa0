package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheGetSetRoundTrip(t *testing.T) {
	c := &Cache{store: map[string]*cacheEntry{}, ttl: time.Minute}
	resp := &ScenarioResponse{StatusCode: 200}

	_, found := c.Get("k")
	require.False(t, found)

	c.Set("k", resp)
	got, found := c.Get("k")
	require.True(t, found)
	require.Same(t, resp, got)
}

func TestCacheExpiresEntries(t *testing.T) {
	c := &Cache{store: map[string]*cacheEntry{}, ttl: time.Millisecond}
	c.Set("k", &ScenarioResponse{})
	time.Sleep(5 * time.Millisecond)

	_, found := c.Get("k")
	require.False(t, found)
}

func TestGenerateCacheKeyIsDeterministic(t *testing.T) {
	now := time.Now()
	p := QueryParams{Scenario: "da", Node: "dn1", StartTime: now, EndTime: now.Add(time.Hour)}
	require.Equal(t, GenerateCacheKey(p), GenerateCacheKey(p))

	other := p
	other.Node = "dn2"
	require.NotEqual(t, GenerateCacheKey(p), GenerateCacheKey(other))
}

func TestGetCacheDisabledByDefault(t *testing.T) {
	t.Setenv("ENABLE_MARKETDATA_CACHE", "")
	require.Nil(t, GetCache())
}
