package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenteb/agente-b/internal/assistant"
	"github.com/agenteb/agente-b/internal/config"
	"github.com/agenteb/agente-b/internal/conversation"
	"github.com/agenteb/agente-b/internal/messages"
	"github.com/agenteb/agente-b/internal/speech"
)

// fakeAI stands in for the OpenAI client on all three surfaces
type fakeAI struct {
	chatRequests []openai.ChatCompletionRequest
	chatReply    string
	chatErr      error

	audioBytes []byte
	speechErr  error

	transcript    string
	transcribeErr error
}

func (f *fakeAI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.chatRequests = append(f.chatRequests, req)
	if f.chatErr != nil {
		return openai.ChatCompletionResponse{}, f.chatErr
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.chatReply}},
		},
	}, nil
}

func (f *fakeAI) CreateSpeech(_ context.Context, _ openai.CreateSpeechRequest) (openai.RawResponse, error) {
	if f.speechErr != nil {
		return openai.RawResponse{}, f.speechErr
	}
	return openai.RawResponse{ReadCloser: io.NopCloser(bytes.NewReader(f.audioBytes))}, nil
}

func (f *fakeAI) CreateTranscription(_ context.Context, _ openai.AudioRequest) (openai.AudioResponse, error) {
	if f.transcribeErr != nil {
		return openai.AudioResponse{}, f.transcribeErr
	}
	return openai.AudioResponse{Text: f.transcript}, nil
}

type testEnv struct {
	server *Server
	store  *conversation.Store
	ai     *fakeAI
	msgs   messages.Catalog
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) testEnv {
	t.Helper()
	cfg := config.Config{
		Port:              5000,
		Locale:            "pt-BR",
		ChatModel:         "test-model",
		MaxOutputTokens:   800,
		Temperature:       0.3,
		WindowTurns:       10,
		TTSModel:          "test-tts",
		TTSVoice:          "alloy",
		STTModel:          "test-stt",
		SummaryInputLimit: 8000,
		DocumentCharLimit: 200000,
		MaxUploadBytes:    32 << 20,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	msgs, err := messages.ForLocale(cfg.Locale)
	require.NoError(t, err)

	ai := &fakeAI{chatReply: "resposta do modelo"}
	store := conversation.NewStore()
	asst := assistant.New(ai, store, msgs, cfg)
	speechSvc := speech.NewService(ai, cfg.TTSModel, cfg.TTSVoice, msgs.TTSInstructions, cfg.STTModel)

	return testEnv{
		server: New(store, asst, speechSvc, msgs, cfg),
		store:  store,
		ai:     ai,
		msgs:   msgs,
	}
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func postMultipart(t *testing.T, s *Server, path, field, filename, content, clientID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("client_id", clientID))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestIndex_ServesLandingPage(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Agente B")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeJSON[map[string]string](t, rec)["status"])
}

func TestChat_BlankMessageShortCircuitsWithoutSideEffects(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := postJSON(t, env.server, "/api/chat", map[string]string{"message": "  ", "client_id": "u1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, env.msgs.BlankMessage, decodeJSON[chatResponse](t, rec).Reply)
	assert.Equal(t, 0, env.store.Len("u1"), "rejected message must not mutate the log")
	assert.Empty(t, env.ai.chatRequests, "no provider call for a blank message")
}

func TestChat_MalformedBodyTreatedAsBlank(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, env.msgs.BlankMessage, decodeJSON[chatResponse](t, rec).Reply)
}

func TestChat_RecordsBothTurns(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := postJSON(t, env.server, "/api/chat", map[string]string{"message": "qual a capital do Brasil?", "client_id": "u1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "resposta do modelo", decodeJSON[chatResponse](t, rec).Reply)

	turns := env.store.Snapshot("u1")
	require.Len(t, turns, 2)
	assert.Equal(t, conversation.RoleUser, turns[0].Role)
	assert.Equal(t, "qual a capital do Brasil?", turns[0].Content)
	assert.Equal(t, conversation.RoleAssistant, turns[1].Role)
}

func TestChat_SecondCallCarriesFullContextInOrder(t *testing.T) {
	env := newTestEnv(t, nil)

	first := postJSON(t, env.server, "/api/chat", map[string]string{"message": "primeira", "client_id": "u1"})
	require.Equal(t, http.StatusOK, first.Code)
	second := postJSON(t, env.server, "/api/chat", map[string]string{"message": "segunda", "client_id": "u1"})
	require.Equal(t, http.StatusOK, second.Code)

	require.Len(t, env.ai.chatRequests, 2)
	msgs := env.ai.chatRequests[1].Messages
	// persona + first user + first assistant + second user
	require.Len(t, msgs, 4)
	assert.Equal(t, "primeira", msgs[1].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, "segunda", msgs[3].Content)
}

func TestChat_ProviderFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ai.chatErr = errors.New("provider down")

	rec := postJSON(t, env.server, "/api/chat", map[string]string{"message": "oi", "client_id": "u1"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, env.msgs.ChatFailed, decodeJSON[errorResponse](t, rec).Error)
}

func TestUpload_TxtRoundTripInjectsVerbatimContent(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ai.chatReply = "resumo do arquivo"
	content := "Relatório anual.\nVendas subiram 10%.\n"

	rec := postMultipart(t, env.server, "/api/upload", "file", "relatorio.txt", content, "u1")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[uploadResponse](t, rec)
	assert.Equal(t, "relatorio.txt", resp.Filename)
	assert.Equal(t, content, resp.Text)
	assert.Equal(t, content, resp.Preview, "short text previews whole content")
	assert.Equal(t, "resumo do arquivo", resp.Summary)

	turns := env.store.Snapshot("u1")
	require.Len(t, turns, 1)
	assert.Equal(t, conversation.RoleSystem, turns[0].Role)
	assert.Contains(t, turns[0].Content, content, "document text must be injected byte-for-byte")
	assert.Contains(t, turns[0].Content, "relatorio.txt")
}

func TestUpload_PreviewIsCappedAt1200Chars(t *testing.T) {
	env := newTestEnv(t, nil)
	content := strings.Repeat("a", 3000)

	rec := postMultipart(t, env.server, "/api/upload", "file", "big.txt", content, "u1")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[uploadResponse](t, rec)
	assert.Len(t, resp.Preview, 1200)
	assert.Len(t, resp.Text, 3000)
}

func TestUpload_UnsupportedExtension(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := postMultipart(t, env.server, "/api/upload", "file", "setup.exe", "MZ...", "u1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, env.msgs.UnsupportedType, decodeJSON[errorResponse](t, rec).Error)
	assert.Equal(t, 0, env.store.Len("u1"), "rejected upload must not mutate the log")
}

func TestUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := postMultipart(t, env.server, "/api/upload", "file", "", "", "u1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, env.msgs.NoFileSent, decodeJSON[errorResponse](t, rec).Error)
}

func TestUpload_WhitespaceOnlyContent(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := postMultipart(t, env.server, "/api/upload", "file", "vazio.txt", "   \n\t  ", "u1")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[uploadResponse](t, rec)
	assert.Empty(t, resp.Text)
	assert.Empty(t, resp.Preview)
	assert.Equal(t, env.msgs.CouldNotExtract, resp.Summary)
	assert.Equal(t, 0, env.store.Len("u1"))
	assert.Empty(t, env.ai.chatRequests, "nothing to summarize")
}

func TestUpload_AppendPolicyPreservesPriorChat(t *testing.T) {
	env := newTestEnv(t, nil) // ResetOnUpload false by default

	first := postJSON(t, env.server, "/api/chat", map[string]string{"message": "oi", "client_id": "u1"})
	require.Equal(t, http.StatusOK, first.Code)
	rec := postMultipart(t, env.server, "/api/upload", "file", "doc.txt", "conteúdo", "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	turns := env.store.Snapshot("u1")
	require.Len(t, turns, 3, "chat turns survive the upload")
	assert.Equal(t, conversation.RoleSystem, turns[2].Role)
}

func TestUpload_ResetPolicyDiscardsPriorChat(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.ResetOnUpload = true })

	first := postJSON(t, env.server, "/api/chat", map[string]string{"message": "oi", "client_id": "u1"})
	require.Equal(t, http.StatusOK, first.Code)
	rec := postMultipart(t, env.server, "/api/upload", "file", "doc.txt", "conteúdo", "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	turns := env.store.Snapshot("u1")
	require.Len(t, turns, 1, "reset-on-upload leaves only the document turn")
	assert.Equal(t, conversation.RoleSystem, turns[0].Role)
}

func TestUpload_DocumentInjectionIsCapped(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.DocumentCharLimit = 50 })
	content := strings.Repeat("x", 500)

	rec := postMultipart(t, env.server, "/api/upload", "file", "big.txt", content, "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	turns := env.store.Snapshot("u1")
	require.Len(t, turns, 1)
	assert.Contains(t, turns[0].Content, strings.Repeat("x", 50))
	assert.NotContains(t, turns[0].Content, strings.Repeat("x", 51))
	// The response still carries the full extraction
	assert.Len(t, decodeJSON[uploadResponse](t, rec).Text, 500)
}

func TestTTS_EmptyText(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := postJSON(t, env.server, "/api/tts", map[string]string{"text": "   "})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, env.msgs.EmptyTTSText, decodeJSON[errorResponse](t, rec).Error)
}

func TestTTS_StreamsAudio(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ai.audioBytes = []byte("mp3-data")

	rec := postJSON(t, env.server, "/api/tts", map[string]string{"text": "olá"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3-data", rec.Body.String())
}

func TestTTS_ProviderFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ai.speechErr = errors.New("voice service down")

	rec := postJSON(t, env.server, "/api/tts", map[string]string{"text": "olá"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, env.msgs.TTSFailed, decodeJSON[errorResponse](t, rec).Error)
}

func TestSTT_MissingAudio(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := postMultipart(t, env.server, "/api/stt", "audio", "", "", "u1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, env.msgs.NoAudioSent, decodeJSON[errorResponse](t, rec).Error)
}

func TestSTT_TranscribesAndReplies(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ai.transcript = "bom dia, agente"
	env.ai.chatReply = "bom dia!"

	rec := postMultipart(t, env.server, "/api/stt", "audio", "voz.webm", "fake-audio", "u1")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[sttResponse](t, rec)
	assert.Equal(t, "bom dia, agente", resp.UserText)
	assert.Equal(t, "bom dia!", resp.ReplyText)

	turns := env.store.Snapshot("u1")
	require.Len(t, turns, 2)
	assert.Equal(t, "bom dia, agente", turns[0].Content)
	assert.Equal(t, "bom dia!", turns[1].Content)
}

func TestSTT_TranscriptionFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ai.transcribeErr = errors.New("whisper down")

	rec := postMultipart(t, env.server, "/api/stt", "audio", "voz.webm", "fake-audio", "u1")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, env.msgs.STTFailed, decodeJSON[errorResponse](t, rec).Error)
	assert.Equal(t, 0, env.store.Len("u1"))
}

func TestSTT_EmptyTranscriptShortCircuits(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ai.transcript = "   "

	rec := postMultipart(t, env.server, "/api/stt", "audio", "voz.webm", "fake-audio", "u1")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[sttResponse](t, rec)
	assert.Empty(t, resp.UserText)
	assert.Equal(t, env.msgs.BlankMessage, resp.ReplyText)
	assert.Equal(t, 0, env.store.Len("u1"))
}

func TestDegradedMode_NoAPIKey(t *testing.T) {
	// Build an env whose assistant and speech service have no client at all
	cfg := config.Config{
		Port: 5000, Locale: "pt-BR", ChatModel: "m", MaxOutputTokens: 800,
		WindowTurns: 10, SummaryInputLimit: 8000, DocumentCharLimit: 200000,
		MaxUploadBytes: 32 << 20,
	}
	msgs, err := messages.ForLocale(cfg.Locale)
	require.NoError(t, err)
	store := conversation.NewStore()
	asst := assistant.New(nil, store, msgs, cfg)
	speechSvc := speech.NewService(nil, "tts", "alloy", "", "stt")
	srv := New(store, asst, speechSvc, msgs, cfg)

	// Chat degrades to the fixed explanation, still HTTP 200
	rec := postJSON(t, srv, "/api/chat", map[string]string{"message": "oi", "client_id": "u1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgs.ChatNotReady, decodeJSON[chatResponse](t, rec).Reply)

	// Upload still extracts; the summary degrades
	up := postMultipart(t, srv, "/api/upload", "file", "doc.txt", "texto do arquivo", "u1")
	require.Equal(t, http.StatusOK, up.Code)
	resp := decodeJSON[uploadResponse](t, up)
	assert.Equal(t, "texto do arquivo", resp.Text)
	assert.Equal(t, msgs.SummaryNotReady, resp.Summary)

	// TTS cannot degrade to text; it reports the configuration problem
	tts := postJSON(t, srv, "/api/tts", map[string]string{"text": "olá"})
	assert.Equal(t, http.StatusInternalServerError, tts.Code)
	assert.Equal(t, msgs.SpeechNotReady, decodeJSON[errorResponse](t, tts).Error)
}
