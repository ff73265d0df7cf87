// Package speech wraps the provider's text-to-speech and speech-to-text
// endpoints.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNotConfigured is returned when no API key was configured at startup.
var ErrNotConfigured = errors.New("speech provider not configured")

// defaultAudioName gives transcription uploads with no filename a usable
// extension; the provider sniffs the container format from it.
const defaultAudioName = "audio.webm"

// Client is the slice of the OpenAI client this package needs.
// *openai.Client satisfies it; tests substitute a fake.
type Client interface {
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Service synthesizes speech from text and transcribes audio to text.
type Service struct {
	client Client // nil when no API key is configured

	ttsModel     string
	voice        string
	instructions string
	sttModel     string
}

func NewService(client Client, ttsModel, voice, instructions, sttModel string) *Service {
	return &Service{
		client:       client,
		ttsModel:     ttsModel,
		voice:        voice,
		instructions: instructions,
		sttModel:     sttModel,
	}
}

// Synthesize converts text to an MP3 stream. The caller owns the returned
// reader and must close it.
func (s *Service) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	ctx, span := otel.Tracer("speech").Start(ctx, "speech.Synthesize")
	span.SetAttributes(
		attribute.String("gen_ai.request.model", s.ttsModel),
		attribute.Int("tts.input_chars", len(text)),
	)
	defer span.End()

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:        openai.SpeechModel(s.ttsModel),
		Input:        text,
		Voice:        openai.SpeechVoice(s.voice),
		Instructions: s.instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return resp, nil
}

// Transcribe converts uploaded audio to plain text. The filename is only
// used to hint the audio container format.
func (s *Service) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}
	if filename == "" {
		filename = defaultAudioName
	}

	ctx, span := otel.Tracer("speech").Start(ctx, "speech.Transcribe")
	span.SetAttributes(attribute.String("gen_ai.request.model", s.sttModel))
	defer span.End()

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.sttModel,
		Reader:   audio,
		FilePath: filename,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
