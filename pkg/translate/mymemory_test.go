package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMyMemoryServer(t *testing.T, handler http.HandlerFunc) *MyMemoryClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMyMemoryClient(srv.URL, "", 0, quietLogger())
}

func TestMyMemoryClient_Translate(t *testing.T) {
	var gotQuery, gotPair, gotEmail string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotPair = r.URL.Query().Get("langpair")
		gotEmail = r.URL.Query().Get("de")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"chicken curry","match":0.98},"responseStatus":200,"responseDetails":""}`))
	}))
	defer srv.Close()

	client := NewMyMemoryClient(srv.URL, "chef@example.com", 0, quietLogger())
	got, err := client.Translate(context.Background(), "frango ao curry", "pt", "en")

	require.NoError(t, err)
	assert.Equal(t, "chicken curry", got)
	assert.Equal(t, "frango ao curry", gotQuery)
	assert.Equal(t, "pt|en", gotPair)
	assert.Equal(t, "chef@example.com", gotEmail)
}

func TestMyMemoryClient_DecodesEntities(t *testing.T) {
	client := newMyMemoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"Molho &quot;bechamel&quot; d&#39;oro"},"responseStatus":200}`))
	})

	got, err := client.Translate(context.Background(), "x", "en", "pt")
	require.NoError(t, err)
	assert.Equal(t, `Molho "bechamel" d'oro`, got)
}

func TestMyMemoryClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "non-2xx status",
			status:  http.StatusInternalServerError,
			body:    "boom",
			wantErr: "unexpected status 500",
		},
		{
			name:    "malformed payload",
			status:  http.StatusOK,
			body:    `{"responseData":`,
			wantErr: "invalid JSON",
		},
		{
			name:    "missing translated text",
			status:  http.StatusOK,
			body:    `{"responseData":{},"responseStatus":200}`,
			wantErr: "missing responseData.translatedText",
		},
		{
			name:    "quota exceeded reported as string status",
			status:  http.StatusOK,
			body:    `{"responseData":{"translatedText":"MYMEMORY WARNING"},"responseStatus":"429","responseDetails":"daily limit"}`,
			wantErr: "mymemory status 429",
		},
		{
			name:    "query too long",
			status:  http.StatusOK,
			body:    `{"responseData":{"translatedText":"QUERY LENGTH LIMIT EXCEEDED"},"responseStatus":403}`,
			wantErr: "mymemory status 403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMyMemoryServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Translate(context.Background(), "texto", "pt", "en")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMyMemoryClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewMyMemoryClient(srv.URL, "", 0, quietLogger())
	_, err := client.Translate(context.Background(), "texto", "pt", "en")
	require.Error(t, err)
}

func TestMyMemoryClient_BehindChunkedTranslator(t *testing.T) {
	var calls int
	client := newMyMemoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		q := r.URL.Query().Get("q")
		if strings.HasPrefix(q, "Fail") {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"` + strings.ToUpper(q) + `"},"responseStatus":200}`))
	})
	ct := NewChunkedTranslator(client, ChunkedOptions{MaxQueryLength: 15, Logger: quietLogger()})

	got := ct.Translate(context.Background(), "Mix well. Fail here. Serve", "en", "pt")

	assert.Equal(t, "MIX WELL.. Fail here. SERVE.", got)
	assert.Equal(t, 3, calls)
}
