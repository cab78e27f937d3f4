package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type Config struct {
	APIKey  string
	Model   string        // e.g. "gemini-flash-latest"
	Timeout time.Duration // per-call deadline
	RPS     float64       // sustained request rate toward the API
	Burst   int
}

// Client extracts appointment details via the Gemini API. One shared
// token bucket guards the quota for the whole process.
type Client struct {
	genai   *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewClient(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extract: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-flash-latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: create client: %w", err)
	}

	return &Client{
		genai:   gc,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		log:     log.With().Str("component", "extract").Logger(),
	}, nil
}

// hands off moderation to the layer that already saw the message
var safetyOff = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

// ExtractAppointment asks the model for structured appointment fields.
// Relative expressions in text are resolved against ref.
func (c *Client) ExtractAppointment(ctx context.Context, text string, ref time.Time) (*Details, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("extract: rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.genai.Models.GenerateContent(ctx, c.model,
		genai.Text(buildPrompt(text, ref)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.1),
			SafetySettings:   safetyOff,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("extract: generate content: %w", err)
	}

	details, err := decodeDetails([]byte(resp.Text()), ref.Location())
	if err != nil {
		c.log.Warn().Err(err).Msg("unusable extraction response")
		return nil, err
	}
	return details, nil
}
