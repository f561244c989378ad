package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/genstudio/internal/config"
	"github.com/digkill/genstudio/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.Config{
		KIEAPIKey:     "test-key",
		KIEBaseURL:    srv.URL,
		KIEImageModel: "image-model",
		KIEEditModel:  "edit-model",
		KIEVideoModel: "veo3_fast",
		KIEChatPath:   "/api/v1/chat/completions",
		KIEChatModel:  "chat-model",
	}, logger.Nop())
	c.pollInterval = time.Millisecond
	c.maxAttempts = 5
	return c
}

func TestGenerateImagesPollsUntilSuccess(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/createTask", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "image-model", body["model"])
		io.WriteString(w, `{"code":200,"msg":"ok","data":{"taskId":"task-1"}}`)
	})
	mux.HandleFunc("/api/v1/jobs/recordInfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "task-1", r.URL.Query().Get("taskId"))
		if polls.Add(1) < 2 {
			io.WriteString(w, `{"code":200,"data":{"state":"generating"}}`)
			return
		}
		io.WriteString(w, `{"code":200,"data":{"state":"success","resultJson":"{\"resultUrls\":[\"https://cdn.kie.ai/a.png\"]}"}}`)
	})
	c := newTestClient(t, mux)

	images, err := c.GenerateImages(context.Background(), ImageRequest{Prompt: "a cat", Count: 1})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "https://cdn.kie.ai/a.png", images[0].URL)
	assert.Equal(t, int32(2), polls.Load())
}

func TestGenerateImagesTaskFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/createTask", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":200,"data":{"taskId":"task-1"}}`)
	})
	mux.HandleFunc("/api/v1/jobs/recordInfo", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":200,"data":{"state":"fail","failCode":"500","failMsg":"nsfw"}}`)
	})
	c := newTestClient(t, mux)

	_, err := c.GenerateImages(context.Background(), ImageRequest{Prompt: "x", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nsfw")
}

func TestEnvelopeErrorIsReported(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":402,"msg":"credits exhausted"}`)
	}))

	_, err := c.StartVideo(context.Background(), "a wave")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credits exhausted")
}

func TestCheckVideoDecodesOperation(t *testing.T) {
	responses := map[string]string{
		"op-pending": `{"code":200,"data":{"successFlag":0}}`,
		"op-done":    `{"code":200,"data":{"successFlag":1,"response":{"resultUrls":["https://cdn.kie.ai/v.mp4"]}}}`,
		"op-failed":  `{"code":200,"data":{"successFlag":2,"errorMessage":"policy violation"}}`,
		"op-unknown": `{"code":200,"data":null}`,
	}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/veo/record-info", r.URL.Path)
		io.WriteString(w, responses[r.URL.Query().Get("taskId")])
	}))

	op, err := c.CheckVideo(context.Background(), "op-pending")
	require.NoError(t, err)
	assert.Equal(t, OperationPending{ID: "op-pending"}, op)

	op, err = c.CheckVideo(context.Background(), "op-done")
	require.NoError(t, err)
	assert.Equal(t, OperationDone{ID: "op-done", ResultURL: "https://cdn.kie.ai/v.mp4"}, op)

	op, err = c.CheckVideo(context.Background(), "op-failed")
	require.NoError(t, err)
	assert.Equal(t, OperationFailed{ID: "op-failed", Reason: "policy violation"}, op)

	op, err = c.CheckVideo(context.Background(), "op-unknown")
	assert.Error(t, err)
	assert.Nil(t, op)
}

func TestChatReturnsSources(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "web_search_options")
		io.WriteString(w, `{"choices":[{"message":{"content":" Go 1.23 is out. ","annotations":[{"type":"url_citation","url_citation":{"title":"Go blog","url":"https://go.dev/blog"}}]}}]}`)
	}))

	reply, err := c.Chat(context.Background(), ChatRequest{Message: "news?", Mode: ChatModeSearch})
	require.NoError(t, err)
	assert.Equal(t, "Go 1.23 is out.", reply.Text)
	require.Len(t, reply.Sources, 1)
	assert.Equal(t, "https://go.dev/blog", reply.Sources[0].URI)
}

func TestNonJSONBodyIsRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>marketing site</html>")
	}))

	_, err := c.StartVideo(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-JSON")
}
