package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/digkill/genstudio/internal/config"
)

// Client talks to the KIE task API. Image jobs are created and then polled
// until they finish; video jobs are only created here and checked later.
type Client struct {
	apiKey       string
	baseURL      string
	imageModel   string
	editModel    string
	videoModel   string
	chatPath     string
	chatModel    string
	httpClient   *http.Client
	log          *slog.Logger
	pollInterval time.Duration
	maxAttempts  int
}

type Image struct {
	URL string
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		apiKey:       cfg.KIEAPIKey,
		baseURL:      strings.TrimRight(cfg.KIEBaseURL, "/"),
		imageModel:   cfg.KIEImageModel,
		editModel:    cfg.KIEEditModel,
		videoModel:   cfg.KIEVideoModel,
		chatPath:     cfg.KIEChatPath,
		chatModel:    cfg.KIEChatModel,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log,
		pollInterval: 2 * time.Second,
		maxAttempts:  60,
	}
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if query != nil {
		ref.RawQuery = query.Encode()
	}
	return base.ResolveReference(ref).String(), nil
}

// do sends the request and returns the body of a 2xx response whose envelope
// code is 200. Chat responses carry no envelope; pass envelope=false for them.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, envelope bool) ([]byte, error) {
	fullURL, err := c.endpoint(path, query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		c.log.Error("KIE request failed", "status", resp.StatusCode, "url", fullURL, "body", truncateBody(rawBody))
		return nil, fmt.Errorf("kie error: status=%d path=%s body=%s", resp.StatusCode, path, truncateBody(rawBody))
	}
	if !gjson.ValidBytes(rawBody) {
		return nil, fmt.Errorf("kie returned non-JSON body: %s", truncateBody(rawBody))
	}
	if envelope {
		if code := gjson.GetBytes(rawBody, "code").Int(); code != 200 {
			return nil, fmt.Errorf("kie request failed: code=%d msg=%s", code, gjson.GetBytes(rawBody, "msg").String())
		}
	}
	return rawBody, nil
}

// createTask starts a job on the generic jobs API and returns its task id.
func (c *Client) createTask(ctx context.Context, payload map[string]any) (string, error) {
	c.log.Info("creating KIE task", "model", payload["model"])
	raw, err := c.do(ctx, http.MethodPost, "/api/v1/jobs/createTask", nil, payload, true)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	taskID := gjson.GetBytes(raw, "data.taskId").String()
	if taskID == "" {
		return "", fmt.Errorf("empty taskId in response")
	}
	return taskID, nil
}

// awaitTask polls a jobs API task until it succeeds or fails and returns the
// result URLs.
func (c *Client) awaitTask(ctx context.Context, taskID string) ([]string, error) {
	query := url.Values{"taskId": []string{taskID}}
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		raw, err := c.do(ctx, http.MethodGet, "/api/v1/jobs/recordInfo", query, nil, true)
		if err != nil {
			return nil, fmt.Errorf("get task status: %w", err)
		}

		data := gjson.GetBytes(raw, "data")
		switch state := data.Get("state").String(); state {
		case "success":
			// resultJson is itself a JSON document encoded as a string.
			urls := gjson.Get(data.Get("resultJson").String(), "resultUrls")
			var out []string
			for _, u := range urls.Array() {
				out = append(out, u.String())
			}
			if len(out) == 0 {
				return nil, fmt.Errorf("no resultUrls in result")
			}
			c.log.Info("KIE task completed", "task_id", taskID, "attempt", attempt+1)
			return out, nil
		case "fail":
			msg := data.Get("failMsg").String()
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("task failed: %s (code: %s)", msg, data.Get("failCode").String())
		case "waiting", "generating", "processing", "queued", "queueing":
		default:
			return nil, fmt.Errorf("unknown task state: %s", state)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return nil, fmt.Errorf("task timeout after %d attempts", c.maxAttempts)
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
