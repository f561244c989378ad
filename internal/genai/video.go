package genai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// Veo record-info success flags.
const (
	videoGenerating = 0
	videoSucceeded  = 1
)

// StartVideo submits a video job and returns its operation id without waiting.
func (c *Client) StartVideo(ctx context.Context, prompt string) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/v1/veo/generate", nil, map[string]any{
		"prompt":      prompt,
		"model":       c.videoModel,
		"aspectRatio": "16:9",
	}, true)
	if err != nil {
		return "", fmt.Errorf("start video: %w", err)
	}
	id := gjson.GetBytes(raw, "data.taskId").String()
	if id == "" {
		return "", fmt.Errorf("start video: empty taskId in response")
	}
	c.log.Info("video operation started", "operation_id", id)
	return id, nil
}

// CheckVideo decodes the job's current state into an Operation. A transport or
// protocol error is returned as an error, not as OperationFailed, so callers
// can retry later.
func (c *Client) CheckVideo(ctx context.Context, operationID string) (Operation, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/v1/veo/record-info", url.Values{"taskId": []string{operationID}}, nil, true)
	if err != nil {
		return nil, fmt.Errorf("check video: %w", err)
	}

	data := gjson.GetBytes(raw, "data")
	successFlag := data.Get("successFlag")
	if !successFlag.Exists() {
		return nil, fmt.Errorf("check video %s: missing successFlag in response", operationID)
	}
	switch flag := successFlag.Int(); flag {
	case videoGenerating:
		return OperationPending{ID: operationID}, nil
	case videoSucceeded:
		resultURL := data.Get("response.resultUrls.0").String()
		if resultURL == "" {
			return OperationFailed{ID: operationID, Reason: "Video generation finished but no video URL was returned."}, nil
		}
		return OperationDone{ID: operationID, ResultURL: resultURL}, nil
	default:
		reason := data.Get("errorMessage").String()
		if reason == "" {
			reason = fmt.Sprintf("Video generation failed (status %d).", flag)
		}
		return OperationFailed{ID: operationID, Reason: reason}, nil
	}
}
