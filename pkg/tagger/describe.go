package tagger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
	"k8s.io/klog/v2"
)

// apiKeyFromEnv returns the Gemini API key for non-Vertex runs.
func apiKeyFromEnv() string {
	if k := os.Getenv("GOOGLE_AI_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// DefaultModel is the generative model used when none is configured.
var DefaultModel = "gemini-2.5-flash"

// describePrompt pins the exact JSON shape the model must return. The
// reconciler repairs deviations, but a strict prompt keeps repairs rare.
var describePrompt = `Analyze this image in detail and return VALID JSON with:
{
  "title": "Creative title (3-7 words)",
  "description": "Detailed description in 2-3 sentences",
  "main_genre": "Main genre (e.g. Photography, Digital art...)",
  "secondary_genre": "Sub-genre (e.g. Fantasy portrait...)",
  "keywords": ["list", "of", "keywords"]
}
Tips:
- Be precise about colors and composition
- Use technical terms where relevant`

// Generation parameters for the describe call.
var (
	describeTemperature     = float32(0.4)
	describeMaxOutputTokens = int32(800)
)

// Backoff policy for the describe call. Only transient server-side failures
// are retried; quota and malformed-input errors surface immediately.
var (
	retryInitialDelay  = 1 * time.Second
	retryMultiplier    = 2
	retryAttemptLimit  = 15 * time.Second
	retryOverallBudget = 30 * time.Second
)

// Describer produces free-form text describing an image, expected to
// contain one JSON object matching Record.
type Describer interface {
	Describe(ctx context.Context, img EncodedImage, det Detection) (string, error)
}

// geminiDescriber calls a Gemini model via the genai SDK.
type geminiDescriber struct {
	client *genai.Client
	model  string
}

// NewGeminiDescriber builds a Describer backed by Gemini. With a project ID
// the Vertex AI backend is used; otherwise the Gemini API backend with
// apiKey. The client is long-lived and shared across all images in a run.
func NewGeminiDescriber(ctx context.Context, project string, apiKey string, model string) (Describer, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey}
	if project != "" {
		cfg = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  project,
			Location: "us-central1",
		}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}

	return &geminiDescriber{client: client, model: model}, nil
}

func (g *geminiDescriber) Describe(ctx context.Context, img EncodedImage, det Detection) (string, error) {
	prompt := describePrompt
	if len(det.Labels) > 0 {
		prompt += "\nDetected content for context: " + strings.Join(det.Labels, ", ")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(img.Data, img.MIME),
		}, genai.RoleUser),
	}

	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(describeTemperature),
		MaxOutputTokens: describeMaxOutputTokens,
	}

	deadline := time.Now().Add(retryOverallBudget)
	delay := retryInitialDelay

	var lastErr error
	for attempt := 1; ; attempt++ {
		actx, cancel := context.WithTimeout(ctx, retryAttemptLimit)
		resp, err := g.client.Models.GenerateContent(actx, g.model, contents, gc)
		cancel()

		if err == nil {
			return resp.Text(), nil
		}

		lastErr = err
		if !retryable(err) {
			return "", err
		}

		if time.Now().Add(delay).After(deadline) {
			break
		}

		klog.Warningf("describe attempt %d failed, retrying in %s: %v", attempt, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		delay *= time.Duration(retryMultiplier)
	}

	return "", fmt.Errorf("describe: retries exhausted: %w", lastErr)
}

// retryable reports whether an error is a transient server-side failure.
// Quota (429) and invalid-argument errors are deliberately excluded.
func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 503 || apiErr.Code == 504
	}

	return errors.Is(err, context.DeadlineExceeded)
}
