package libretranslate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
)

func TestProvider_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		var req TranslateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "auto", req.Source)
		assert.Equal(t, "zh", req.Target)
		_, _ = w.Write([]byte(`{"translatedText":"你好","detectedLanguage":{"confidence":90,"language":"en"}}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.APIEndpoint = server.URL + "/translate"
	p := New(cfg)

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{Text: "hello", TargetLanguage: "zh-CN"})
	require.NoError(t, err)
	assert.Equal(t, "你好", resp.Text)
	assert.Equal(t, "en", resp.SourceLang)
}

func TestProvider_TranslateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"xx is not supported"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.APIEndpoint = server.URL
	_, err := New(cfg).Translate(context.Background(), &providers.ProviderRequest{Text: "hello", TargetLanguage: "xx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xx is not supported")
}
