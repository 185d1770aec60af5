package transcription

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"

	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = openai.Whisper1
	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	DefaultGroqModel     = "whisper-large-v3"
)

// Provider is one speech-to-text backend
type Provider interface {
	Name() string
	// Configured reports whether a usable credential is present
	Configured() bool
	Supports(language string) bool
	Transcribe(ctx context.Context, path, language string) (string, error)
}

// ProviderSettings holds the credential and endpoint of a Whisper provider
type ProviderSettings struct {
	APIKey  string
	BaseURL string
	Model   string
}

// WhisperProvider calls an OpenAI-compatible /audio/transcriptions endpoint
type WhisperProvider struct {
	name      string
	apiKey    string
	keyPrefix string
	model     string
	languages []string
	prompts   map[string]string
	client    *openai.Client
}

// NewOpenAIProvider is the premium provider; it only handles Myanmar
func NewOpenAIProvider(settings ProviderSettings, timeout time.Duration) *WhisperProvider {
	return newWhisperProvider(whisperOptions{
		name:      ProviderOpenAI,
		settings:  settings,
		baseURL:   DefaultOpenAIBaseURL,
		model:     DefaultOpenAIModel,
		keyPrefix: "sk-",
		languages: []string{domain.LanguageMyanmar},
		prompts: map[string]string{
			domain.LanguageMyanmar: "မင်္ဂလာပါ။ ဒါကမြန်မာစကားဖြစ်ပါတယ်။",
		},
		timeout: timeout,
	})
}

// NewGroqProvider handles both languages. Temperature is left at Whisper's default of 0.
func NewGroqProvider(settings ProviderSettings, timeout time.Duration) *WhisperProvider {
	return newWhisperProvider(whisperOptions{
		name:      ProviderGroq,
		settings:  settings,
		baseURL:   DefaultGroqBaseURL,
		model:     DefaultGroqModel,
		keyPrefix: "gsk_",
		languages: []string{domain.LanguageEnglish, domain.LanguageMyanmar},
		prompts: map[string]string{
			domain.LanguageEnglish: "This is spoken in English.",
			domain.LanguageMyanmar: "မင်္ဂလာပါ။ ဒါကမြန်မာဘာသာစကားဖြစ်ပါတယ်။ ကျွန်တော်မြန်မာလိုပြောနေပါတယ်။",
		},
		timeout: timeout,
	})
}

type whisperOptions struct {
	name      string
	settings  ProviderSettings
	baseURL   string
	model     string
	keyPrefix string
	languages []string
	prompts   map[string]string
	timeout   time.Duration
}

func newWhisperProvider(opts whisperOptions) *WhisperProvider {
	cfg := openai.DefaultConfig(opts.settings.APIKey)
	cfg.BaseURL = opts.baseURL
	if opts.settings.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.settings.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.timeout}

	model := opts.model
	if opts.settings.Model != "" {
		model = opts.settings.Model
	}

	return &WhisperProvider{
		name:      opts.name,
		apiKey:    opts.settings.APIKey,
		keyPrefix: opts.keyPrefix,
		model:     model,
		languages: opts.languages,
		prompts:   opts.prompts,
		client:    openai.NewClientWithConfig(cfg),
	}
}

func (p *WhisperProvider) Name() string { return p.name }

func (p *WhisperProvider) Configured() bool {
	return p.apiKey != "" && strings.HasPrefix(p.apiKey, p.keyPrefix)
}

func (p *WhisperProvider) Supports(language string) bool {
	return slices.Contains(p.languages, language)
}

func (p *WhisperProvider) Transcribe(ctx context.Context, path, language string) (string, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: path,
		Prompt:   p.prompts[language],
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("%s transcription request failed: %w", p.name, err)
	}

	return resp.Text, nil
}
