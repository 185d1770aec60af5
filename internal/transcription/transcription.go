// Package transcription turns stored audio into text. Providers are tried in a
// fixed order; when none is configured or all fail, a demo-mode placeholder is
// returned instead of an error.
package transcription

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/domain"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/audio"
)

// DefaultTimeout bounds every outbound call
const DefaultTimeout = 60 * time.Second

// ProviderPlaceholder names the result produced without any provider
const ProviderPlaceholder = "placeholder"

// ErrEmptyTranscript is returned by an attempt whose provider answered with no text
var ErrEmptyTranscript = errors.New("no text in response")

// Config configures the client and its two Whisper providers
type Config struct {
	Timeout time.Duration
	TempDir string
	OpenAI  ProviderSettings
	Groq    ProviderSettings
}

// Audio identifies one stored upload
type Audio struct {
	Locator  string
	FileName string
	FileSize int64
	Language string
}

// Result is a finished transcription
type Result struct {
	Text     string
	Provider string
	// Duration is in whole seconds
	Duration int
}

// ProviderStatus reports whether a provider can be attempted
type ProviderStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// Client runs the ordered provider attempts
type Client struct {
	providers  []Provider
	timeout    time.Duration
	tempDir    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient wires the premium OpenAI provider ahead of Groq
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return NewClientWithProviders(logger, timeout, cfg.TempDir,
		NewOpenAIProvider(cfg.OpenAI, timeout),
		NewGroqProvider(cfg.Groq, timeout),
	)
}

// NewClientWithProviders tries providers in the given order
func NewClientWithProviders(logger *slog.Logger, timeout time.Duration, tempDir string, providers ...Provider) *Client {
	return &Client{
		providers:  providers,
		timeout:    timeout,
		tempDir:    tempDir,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Status lists every provider and whether it is configured
func (c *Client) Status() []ProviderStatus {
	statuses := make([]ProviderStatus, 0, len(c.providers))
	for _, p := range c.providers {
		statuses = append(statuses, ProviderStatus{Name: p.Name(), Configured: p.Configured()})
	}
	return statuses
}

type attemptResult struct {
	provider string
	text     string
	err      error
}

// Transcribe returns provider text, or the placeholder when no provider
// produced any. The only errors are failures to read the audio itself and
// cancellation of ctx.
func (c *Client) Transcribe(ctx context.Context, a Audio) (Result, error) {
	eligible := c.eligible(a.Language)

	if len(eligible) == 0 {
		c.logger.Info("No transcription provider configured, using placeholder",
			slog.String("language", a.Language),
		)
		return c.placeholder(a, a.Locator), nil
	}

	path, cleanup, err := c.materialize(ctx, a.Locator)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	for _, p := range eligible {
		res := c.attempt(ctx, p, path, a.Language)
		if res.err != nil {
			c.logger.Warn("Transcription attempt failed",
				slog.String("provider", res.provider),
				slog.String("language", a.Language),
				slog.Any("error", res.err),
			)
			continue
		}

		c.logScripts(res, a.Language)

		return Result{
			Text:     res.text,
			Provider: res.provider,
			Duration: duration(path, a.FileSize),
		}, nil
	}

	// the job itself was canceled, not just a provider call
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	c.logger.Warn("All transcription providers failed, using placeholder",
		slog.String("language", a.Language),
		slog.Int("attempts", len(eligible)),
	)
	return c.placeholder(a, path), nil
}

func (c *Client) eligible(language string) []Provider {
	var out []Provider
	for _, p := range c.providers {
		if p.Configured() && p.Supports(language) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Client) attempt(ctx context.Context, p Provider, path, language string) attemptResult {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := p.Transcribe(callCtx, path, language)
	if err != nil {
		return attemptResult{provider: p.Name(), err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return attemptResult{provider: p.Name(), err: ErrEmptyTranscript}
	}

	c.logger.Info("Transcription attempt succeeded",
		slog.String("provider", p.Name()),
		slog.Int("chars", len([]rune(text))),
		slog.Duration("elapsed", time.Since(start)),
	)

	return attemptResult{provider: p.Name(), text: text}
}

func (c *Client) placeholder(a Audio, path string) Result {
	return Result{
		Text:     Placeholder(a.FileName, a.FileSize, a.Language),
		Provider: ProviderPlaceholder,
		Duration: duration(path, a.FileSize),
	}
}

// duration measures local files and estimates everything else
func duration(path string, size int64) int {
	if isRemote(path) {
		return audio.EstimateSeconds(size)
	}
	if _, err := os.Stat(path); err != nil {
		return audio.EstimateSeconds(size)
	}

	info, err := audio.Probe(path, size)
	if err != nil {
		return audio.EstimateSeconds(size)
	}
	return info.Seconds
}

// logScripts flags Myanmar output that came back mixed with Thai script
func (c *Client) logScripts(res attemptResult, language string) {
	var myanmar, thai bool
	for _, r := range res.text {
		switch {
		case unicode.Is(unicode.Myanmar, r):
			myanmar = true
		case unicode.Is(unicode.Thai, r):
			thai = true
		}
	}

	if language == domain.LanguageMyanmar && myanmar && thai {
		c.logger.Warn("Mixed scripts in Myanmar transcript",
			slog.String("provider", res.provider),
		)
	}
}
