// Package openai provides a transcriber backed by the OpenAI audio API.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/equiproom/jerseyvox/pkg/provider/stt"
)

// Compile-time assertion that Transcriber implements stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

const defaultModel = oai.AudioModelWhisper1

// config holds optional configuration for the transcriber.
type config struct {
	baseURL string
	model   oai.AudioModel
	timeout time.Duration
}

// Option is a functional option for Transcriber.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel overrides the default transcription model (whisper-1).
func WithModel(model string) Option {
	return func(c *config) {
		c.model = oai.AudioModel(model)
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Transcriber implements stt.Transcriber using the OpenAI audio API.
type Transcriber struct {
	client oai.Client
	model  oai.AudioModel
}

// New constructs a new OpenAI Transcriber.
func New(apiKey string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Transcriber{
		client: oai.NewClient(reqOpts...),
		model:  cfg.model,
	}, nil
}

// Name implements stt.Transcriber.
func (t *Transcriber) Name() string {
	return "openai"
}

// Transcribe implements stt.Transcriber. The audio is uploaded as a file;
// the API accepts WAV directly. Raw PCM is not supported because the API
// requires a container format.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, format string) (stt.Transcript, error) {
	if len(audio) == 0 {
		return stt.Transcript{}, fmt.Errorf("openai: empty audio")
	}
	if format != stt.FormatWAV {
		return stt.Transcript{}, fmt.Errorf("openai: unsupported audio format %q, need %q", format, stt.FormatWAV)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(audio), "audio.wav", "audio/wav"),
		Model: t.model,
	})
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("openai: transcription: %w", err)
	}

	return stt.Transcript{Text: resp.Text}, nil
}
