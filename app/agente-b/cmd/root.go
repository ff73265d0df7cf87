package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agente-b",
	Short: "Chat backend that proxies conversations to an AI provider",
	Long: `Agente B is a web backend for an AI chat assistant. It serves chat,
file upload with summarization, text-to-speech and speech-to-text endpoints,
keeping a per-client conversation history in memory.`,
	PersistentPreRun: loadDotEnv,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadDotEnv(_ *cobra.Command, _ []string) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}
