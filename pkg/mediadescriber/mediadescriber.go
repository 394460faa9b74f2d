// Package mediadescriber implements ingestdomain.MediaDescriber: given a
// batch of extracted figures and the surrounding page text, it fills each
// figure's Description (and, when the backend supports it, OCRText). The
// vision-model variant issues one chat-completion request per image and
// must be driven sequentially (the orchestrator enforces this with a
// capacity-1 semaphore); the disabled variant is a no-op used when
// media_describer.mode is "disabled".
package mediadescriber

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// VisionConfig configures the vision-model MediaDescriber backend.
type VisionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Prompt  string
}

// VisionDescriber calls a chat-completions vision model once per image.
type VisionDescriber struct {
	client openai.Client
	model  string
	prompt string
}

const defaultVisionPrompt = "Describe this figure in one or two sentences, using the surrounding page text as context. Be factual and concise."

// NewVisionDescriber constructs a VisionDescriber from cfg.
func NewVisionDescriber(cfg VisionConfig) (*VisionDescriber, error) {
	if cfg.APIKey == "" {
		return nil, ingesterr.New(ingesterr.ConfigInvalid, "mediadescriber", "new", "vision api key is required", nil)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = defaultVisionPrompt
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &VisionDescriber{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		prompt: cfg.Prompt,
	}, nil
}

// Describe fills Description for every image in images, one request at a
// time, in order. pageText gives the model the figure's surrounding
// context. A per-image failure is wrapped with ingesterr and aborts the
// remaining batch; images already described keep their result.
func (d *VisionDescriber) Describe(ctx context.Context, images []*ingestdomain.ExtractedImage, pageText string) error {
	for _, img := range images {
		if len(img.ImageBytes) == 0 {
			continue
		}

		encoded := base64.StdEncoding.EncodeToString(img.ImageBytes)
		dataURL := "data:image/png;base64," + encoded

		userText := d.prompt
		if pageText != "" {
			userText = fmt.Sprintf("%s\n\nPage context:\n%s", d.prompt, pageText)
		}
		if img.Caption != "" {
			userText = fmt.Sprintf("%s\n\nCaption: %s", userText, img.Caption)
		}

		contentParts := []openai.ChatCompletionContentPartUnionParam{
			{OfText: &openai.ChatCompletionContentPartTextParam{Text: userText}},
			{OfImageURL: &openai.ChatCompletionContentPartImageParam{
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL},
			}},
		}
		userMsg := openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: contentParts,
			},
		}
		params := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(d.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				{OfUser: &userMsg},
			},
		}

		resp, err := d.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return ingesterr.WrapWithContext(err, ingesterr.TransientNetwork, "mediadescriber", "describe",
				fmt.Sprintf("vision request failed for figure %s", img.FigureID))
		}
		if len(resp.Choices) == 0 {
			return ingesterr.New(ingesterr.ExtractionFailed, "mediadescriber", "describe",
				fmt.Sprintf("vision model returned no choices for figure %s", img.FigureID), nil)
		}

		img.Description = resp.Choices[0].Message.Content
	}
	return nil
}

// DisabledDescriber is the no-op MediaDescriber used when
// media_describer.mode is "disabled"; images are uploaded without a
// description.
type DisabledDescriber struct{}

// NewDisabledDescriber returns a DisabledDescriber.
func NewDisabledDescriber() *DisabledDescriber { return &DisabledDescriber{} }

// Describe is a no-op: every image keeps an empty Description.
func (d *DisabledDescriber) Describe(ctx context.Context, images []*ingestdomain.ExtractedImage, pageText string) error {
	return nil
}
