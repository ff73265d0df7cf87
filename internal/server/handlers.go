package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/agenteb/agente-b/internal/conversation"
	"github.com/agenteb/agente-b/internal/extract"
	"github.com/agenteb/agente-b/internal/speech"
)

// previewChars is how much of the extracted text is returned as the preview
// field of an upload response.
const previewChars = 1200

type chatRequest struct {
	Message  string `json:"message"`
	ClientID string `json:"client_id"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type uploadResponse struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
	Preview  string `json:"preview"`
	Summary  string `json:"summary"`
}

type ttsRequest struct {
	Text string `json:"text"`
}

type sttResponse struct {
	UserText  string `json:"user_text"`
	ReplyText string `json:"reply_text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	// A missing or malformed body is treated the same as an empty message
	_ = json.NewDecoder(r.Body).Decode(&req)

	if strings.TrimSpace(req.Message) == "" {
		s.writeJSON(w, http.StatusOK, chatResponse{Reply: s.msgs.BlankMessage})
		return
	}
	clientID := conversation.CanonicalClientID(req.ClientID)

	if err := s.store.Append(clientID, conversation.RoleUser, req.Message); err != nil {
		log.Printf("failed to record user turn for %s: %v", clientID, err)
	}

	reply, err := s.assistant.Reply(r.Context(), clientID)
	if err != nil {
		log.Printf("chat reply failed for %s: %v", clientID, err)
		s.writeError(w, http.StatusBadGateway, s.msgs.ChatFailed)
		return
	}
	if reply != "" {
		if err := s.store.Append(clientID, conversation.RoleAssistant, reply); err != nil {
			log.Printf("failed to record assistant turn for %s: %v", clientID, err)
		}
	}

	log.Printf("chat: client_id=%s history_len=%d", clientID, s.store.Len(clientID))
	s.writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, s.msgs.NoFileSent)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, s.msgs.NoFileSent)
		return
	}
	defer file.Close()

	clientID := conversation.CanonicalClientID(r.FormValue("client_id"))
	filename := header.Filename
	if filename == "" {
		filename = "file"
	}

	text, err := extract.FromUpload(filename, file)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			s.writeError(w, http.StatusBadRequest, s.msgs.UnsupportedType)
			return
		}
		log.Printf("upload extraction failed for %s: %v", filename, err)
		s.writeError(w, http.StatusInternalServerError, s.msgs.FileProcessFailed)
		return
	}

	if strings.TrimSpace(text) == "" {
		s.writeJSON(w, http.StatusOK, uploadResponse{
			Filename: filename,
			Summary:  s.msgs.CouldNotExtract,
		})
		return
	}

	summary, err := s.assistant.Summarize(r.Context(), text)
	if err != nil {
		// The upload's primary product is the extraction; a failed summary
		// degrades to a fixed apology instead of failing the request
		log.Printf("summarization failed for %s: %v", filename, err)
		summary = s.msgs.SummaryFailed
	}

	// Document injection is capped so a huge upload cannot grow the history
	// and every later prompt without bound
	injected := s.msgs.DocumentInjection(filename, extract.Truncate(text, s.cfg.DocumentCharLimit))
	if s.cfg.ResetOnUpload {
		err = s.store.ResetWith(clientID, conversation.RoleSystem, injected)
	} else {
		err = s.store.Append(clientID, conversation.RoleSystem, injected)
	}
	if err != nil {
		log.Printf("failed to record document turn for %s: %v", clientID, err)
	}

	log.Printf("upload: client_id=%s file=%s chars=%d", clientID, filename, len(text))
	s.writeJSON(w, http.StatusOK, uploadResponse{
		Filename: filename,
		Text:     text,
		Preview:  extract.Truncate(text, previewChars),
		Summary:  summary,
	})
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, s.msgs.EmptyTTSText)
		return
	}

	audio, err := s.speech.Synthesize(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, speech.ErrNotConfigured) {
			s.writeError(w, http.StatusInternalServerError, s.msgs.SpeechNotReady)
			return
		}
		log.Printf("tts failed: %v", err)
		s.writeError(w, http.StatusBadGateway, s.msgs.TTSFailed)
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	if _, err := io.Copy(w, audio); err != nil {
		log.Printf("tts stream interrupted: %v", err)
	}
}

func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, s.msgs.NoAudioSent)
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, s.msgs.NoAudioSent)
		return
	}
	defer file.Close()

	clientID := conversation.CanonicalClientID(r.FormValue("client_id"))

	userText, err := s.speech.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, speech.ErrNotConfigured) {
			s.writeError(w, http.StatusInternalServerError, s.msgs.SpeechNotReady)
			return
		}
		log.Printf("transcription failed for %s: %v", clientID, err)
		s.writeError(w, http.StatusBadGateway, s.msgs.STTFailed)
		return
	}

	// Silence in, clarification out; nothing worth recording in the history
	if userText == "" {
		s.writeJSON(w, http.StatusOK, sttResponse{ReplyText: s.msgs.BlankMessage})
		return
	}

	if err := s.store.Append(clientID, conversation.RoleUser, userText); err != nil {
		log.Printf("failed to record user turn for %s: %v", clientID, err)
	}

	reply, err := s.assistant.Reply(r.Context(), clientID)
	if err != nil {
		log.Printf("chat reply failed for %s: %v", clientID, err)
		s.writeError(w, http.StatusBadGateway, s.msgs.ChatFailed)
		return
	}
	if reply != "" {
		if err := s.store.Append(clientID, conversation.RoleAssistant, reply); err != nil {
			log.Printf("failed to record assistant turn for %s: %v", clientID, err)
		}
	}

	log.Printf("stt: client_id=%s history_len=%d", clientID, s.store.Len(clientID))
	s.writeJSON(w, http.StatusOK, sttResponse{UserText: userText, ReplyText: reply})
}
