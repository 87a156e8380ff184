package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
)

func newTestProvider(handler http.HandlerFunc) (*Provider, func()) {
	server := httptest.NewServer(handler)
	cfg := DefaultConfig()
	cfg.APIKey = "k"
	cfg.APIEndpoint = server.URL
	cfg.MaxRetries = 1
	cfg.RetryDelay = time.Millisecond
	return New(cfg), server.Close
}

func TestProvider_Translate(t *testing.T) {
	p, done := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "k", r.Form.Get("key"))
		assert.Equal(t, "zh-CN", r.Form.Get("target"))
		assert.Empty(t, r.Form.Get("source"))
		assert.Equal(t, "It's fine", r.Form.Get("q"))
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"没关系 &#39;ok&#39;","detectedSourceLanguage":"en"}]}}`))
	})
	defer done()

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{Text: "It's fine", TargetLanguage: "zh-cn"})
	require.NoError(t, err)
	assert.Equal(t, "没关系 'ok'", resp.Text)
	assert.Equal(t, "en", resp.SourceLang)
}

func TestProvider_TranslateAPIError(t *testing.T) {
	p, done := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	})
	defer done()

	_, err := p.Translate(context.Background(), &providers.ProviderRequest{Text: "x", TargetLanguage: "de"})
	var pe *providers.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, providers.ErrCodeAuth, pe.Code)
	assert.Contains(t, pe.Error(), "API key not valid")
}

func TestNormalizeLanguageCode(t *testing.T) {
	assert.Equal(t, "tr", normalizeLanguageCode("TR"))
	assert.Equal(t, "zh-TW", normalizeLanguageCode("zh_tw"))
}
