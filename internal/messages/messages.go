// Package messages holds every user-facing string, keyed by locale, so the
// language served to users is a configuration choice rather than a constant
// scattered through handlers.
package messages

import "fmt"

// Catalog is the full set of user-facing strings for one locale.
type Catalog struct {
	// Fixed conversational replies served with HTTP 200
	NoMessageYet    string // assistant asked to reply over an empty history
	BlankMessage    string // user submitted whitespace only
	ChatNotReady    string // chat requested but no API key is configured
	SummaryNotReady string // summary requested but no API key is configured

	// Error bodies
	NoFileSent        string
	NoAudioSent       string
	EmptyTTSText      string
	UnsupportedType   string
	FileProcessFailed string
	CouldNotExtract   string
	ChatFailed        string
	SummaryFailed     string
	TTSFailed         string
	STTFailed         string
	SpeechNotReady    string

	// Prompts sent to the model
	PersonaPrompt       string
	TTSInstructions     string
	SummarySystemPrompt string
	summaryUserPrompt   string // format: excerpt
	documentInjection   string // format: filename, content
}

// SummaryPrompt renders the user message of a summarization request.
func (c Catalog) SummaryPrompt(excerpt string) string {
	return fmt.Sprintf(c.summaryUserPrompt, excerpt)
}

// DocumentInjection renders the system turn recording an uploaded file.
func (c Catalog) DocumentInjection(filename, content string) string {
	return fmt.Sprintf(c.documentInjection, filename, content)
}

var ptBR = Catalog{
	NoMessageYet:    "Pode repetir? Ainda não recebi nenhuma mensagem na conversa.",
	BlankMessage:    "Pode repetir a pergunta? Não recebi nenhum texto.",
	ChatNotReady:    "Erro: a chave da OpenAI não está configurada.\nDefina a variável de ambiente OPENAI_API_KEY antes de rodar o servidor.",
	SummaryNotReady: "Não consegui falar com a IA para resumir o texto (OpenAI não configurada).",

	NoFileSent:        "Nenhum arquivo enviado",
	NoAudioSent:       "Nenhum áudio enviado",
	EmptyTTSText:      "Texto vazio para TTS",
	UnsupportedType:   "Tipo de arquivo não suportado. Use .txt ou .pdf.",
	FileProcessFailed: "Erro ao processar arquivo",
	CouldNotExtract:   "Não foi possível extrair texto deste arquivo.",
	ChatFailed:        "Tive um problema ao falar com o modelo de IA.",
	SummaryFailed:     "Não consegui resumir o texto por um erro técnico.",
	TTSFailed:         "Falha ao gerar áudio",
	STTFailed:         "Falha ao transcrever áudio",
	SpeechNotReady:    "OpenAI não configurada",

	PersonaPrompt: "Você é um assistente virtual chamado Agente B. " +
		"Você fala em Português Brasileiro, de forma clara, objetiva e amigável. " +
		"O usuário que está conversando com você é simplesmente chamado de 'usuário'. " +
		"Responda sempre de forma educada, útil e focada na pergunta.",
	TTSInstructions: "Fale em português brasileiro, com sotaque natural do Brasil, " +
		"pronúncia clara e ritmo de leitura natural.",
	SummarySystemPrompt: "Você é um assistente que faz resumos completos, claros e organizados " +
		"em português brasileiro.",
	summaryUserPrompt: "Resuma o texto completo abaixo, em português claro, " +
		"destacando ideias principais, tópicos importantes e conclusões.\n\nTexto:\n%s",
	documentInjection: "O usuário enviou um arquivo chamado '%s'. " +
		"Abaixo está o conteúdo completo do arquivo:\n\n%s",
}

var english = Catalog{
	NoMessageYet:    "Could you say that again? I haven't received any message in this conversation yet.",
	BlankMessage:    "Could you repeat the question? I didn't receive any text.",
	ChatNotReady:    "Error: the OpenAI key is not configured.\nSet the OPENAI_API_KEY environment variable before starting the server.",
	SummaryNotReady: "I couldn't reach the AI to summarize the text (OpenAI not configured).",

	NoFileSent:        "No file sent",
	NoAudioSent:       "No audio sent",
	EmptyTTSText:      "Empty text for TTS",
	UnsupportedType:   "Unsupported file type. Use .txt or .pdf.",
	FileProcessFailed: "Failed to process file",
	CouldNotExtract:   "Could not extract text from this file.",
	ChatFailed:        "I had a problem talking to the AI model.",
	SummaryFailed:     "I couldn't summarize the text due to a technical error.",
	TTSFailed:         "Failed to generate audio",
	STTFailed:         "Failed to transcribe audio",
	SpeechNotReady:    "OpenAI not configured",

	PersonaPrompt: "You are a virtual assistant named Agente B. " +
		"You speak clearly, objectively and in a friendly tone. " +
		"The person talking to you is simply called 'the user'. " +
		"Always answer politely, helpfully and focused on the question.",
	TTSInstructions: "Speak with a natural accent, clear pronunciation " +
		"and a natural reading pace.",
	SummarySystemPrompt: "You are an assistant that writes complete, clear and well organized summaries.",
	summaryUserPrompt: "Summarize the full text below, highlighting the main ideas, " +
		"important topics and conclusions.\n\nText:\n%s",
	documentInjection: "The user sent a file named '%s'. " +
		"Below is the full content of the file:\n\n%s",
}

// ForLocale returns the catalog for a locale tag. Supported: "pt-BR", "en".
func ForLocale(locale string) (Catalog, error) {
	switch locale {
	case "pt-BR":
		return ptBR, nil
	case "en":
		return english, nil
	default:
		return Catalog{}, fmt.Errorf("unsupported locale %q (supported: pt-BR, en)", locale)
	}
}
