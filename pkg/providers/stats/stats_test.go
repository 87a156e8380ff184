package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/raw"
)

type failingProvider struct {
	*raw.Provider
	err error
}

func (p *failingProvider) Translate(context.Context, *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	return nil, p.err
}

func TestMiddleware_RecordsSuccessAndFailure(t *testing.T) {
	sm := NewStatsManager("", nil)

	ok := NewStatisticsMiddleware(raw.New(), sm, "", "")
	_, err := ok.Translate(context.Background(), &providers.ProviderRequest{Text: "çeviri", TargetLanguage: "en"})
	require.NoError(t, err)

	bad := NewStatisticsMiddleware(&failingProvider{
		Provider: raw.New(),
		err:      providers.HTTPError("google", 429, "slow down"),
	}, sm, "google", "v2")
	_, err = bad.Translate(context.Background(), &providers.ProviderRequest{Text: "x"})
	require.Error(t, err)

	rawStats := sm.GetStats("raw", "raw")
	require.NotNil(t, rawStats)
	assert.Equal(t, int64(1), rawStats.SuccessfulRequests)
	assert.Equal(t, int64(6), rawStats.TotalCharacters)
	assert.Equal(t, 100.0, rawStats.SuccessRate())

	googleStats := sm.GetStats("google", "v2")
	require.NotNil(t, googleStats)
	assert.Equal(t, int64(1), googleStats.FailedRequests)
	assert.Equal(t, int64(1), googleStats.ErrorTypes[providers.ErrCodeRateLimit])
	assert.Equal(t, 0.0, googleStats.SuccessRate())
}

func TestStatsManager_Latency(t *testing.T) {
	sm := NewStatsManager("", nil)
	sm.RecordRequest("p", "m", RequestResult{Success: true, Latency: 10 * time.Millisecond})
	sm.RecordRequest("p", "m", RequestResult{Success: true, Latency: 30 * time.Millisecond})

	s := sm.GetStats("p", "m")
	assert.Equal(t, 10*time.Millisecond, s.MinLatency)
	assert.Equal(t, 30*time.Millisecond, s.MaxLatency)
	assert.Equal(t, 20*time.Millisecond, s.AverageLatency())
	assert.Nil(t, sm.GetStats("p", "other"))
}

func TestStatsManager_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats", "providers.json")

	sm := NewStatsManager(path, nil)
	sm.RecordRequest("deepl", "", RequestResult{Success: false, ErrorType: providers.ErrCodeQuota})
	require.NoError(t, sm.SaveToDB())

	loaded := NewStatsManager(path, nil)
	require.NoError(t, loaded.LoadFromDB())
	s := loaded.GetStats("deepl", "")
	require.NotNil(t, s)
	assert.Equal(t, int64(1), s.ErrorTypes[providers.ErrCodeQuota])

	missing := NewStatsManager(filepath.Join(t.TempDir(), "none.json"), nil)
	assert.NoError(t, missing.LoadFromDB())
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	sm := NewStatsManager("", nil)
	sm.RenderTable(&buf)
	assert.Contains(t, buf.String(), "No statistics available.")

	buf.Reset()
	sm.RecordRequest("openai", "gpt-4o-mini", RequestResult{Success: true, TokensIn: 12, TokensOut: 4})
	sm.RecordRequest("openai", "gpt-4o-mini", RequestResult{ErrorType: providers.ErrCodeTimeout})
	sm.RenderTable(&buf)

	out := buf.String()
	assert.Contains(t, out, "gpt-4o-mini")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "12/4")
	assert.Contains(t, out, "timeout=1")
}
