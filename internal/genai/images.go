package genai

import (
	"context"
	"fmt"
)

const enhancePrompt = "Enhance this image: increase detail, sharpness and lighting quality while keeping the composition. Original prompt: "

type ImageRequest struct {
	Prompt      string
	Count       int
	AspectRatio string
}

// GenerateImages runs one text-to-image task per requested image. Any failed
// task fails the whole call.
func (c *Client) GenerateImages(ctx context.Context, req ImageRequest) ([]Image, error) {
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "1:1"
	}
	images := make([]Image, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		urls, err := c.runImageTask(ctx, c.imageModel, map[string]any{
			"prompt":       req.Prompt,
			"aspect_ratio": req.AspectRatio,
			"resolution":   "1K",
		})
		if err != nil {
			return nil, fmt.Errorf("generate image %d of %d: %w", i+1, req.Count, err)
		}
		images = append(images, Image{URL: urls[0]})
	}
	return images, nil
}

// EnhanceImage re-renders sourceURL at higher quality, guided by its prompt.
func (c *Client) EnhanceImage(ctx context.Context, sourceURL, prompt string) (*Image, error) {
	urls, err := c.runImageTask(ctx, c.editModel, map[string]any{
		"prompt":     enhancePrompt + prompt,
		"input_urls": []string{sourceURL},
		"resolution": "2K",
	})
	if err != nil {
		return nil, fmt.Errorf("enhance image: %w", err)
	}
	return &Image{URL: urls[0]}, nil
}

// EditImage applies prompt to the image at sourceURL.
func (c *Client) EditImage(ctx context.Context, sourceURL, prompt string) (*Image, error) {
	urls, err := c.runImageTask(ctx, c.editModel, map[string]any{
		"prompt":     prompt,
		"input_urls": []string{sourceURL},
		"resolution": "1K",
	})
	if err != nil {
		return nil, fmt.Errorf("edit image: %w", err)
	}
	return &Image{URL: urls[0]}, nil
}

func (c *Client) runImageTask(ctx context.Context, model string, input map[string]any) ([]string, error) {
	taskID, err := c.createTask(ctx, map[string]any{"model": model, "input": input})
	if err != nil {
		return nil, err
	}
	return c.awaitTask(ctx, taskID)
}
