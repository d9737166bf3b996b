package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yoanbernabeu/cinevec/config"
)

var (
	initProvider       string
	initNonInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a cinevec.yaml in the current directory",
	Long: `Create a cinevec.yaml configuration file.

This command will:
- Prompt for an embedding provider (Gemini, OpenAI, Ollama or Cohere)
- Write cinevec.yaml with sensible defaults
- Print which environment variable must hold the API key`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initProvider, "provider", "p", "", "Embedding provider (gemini, openai, ollama, or cohere)")
	initCmd.Flags().BoolVar(&initNonInteractive, "yes", false, "Use defaults without prompting")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.ConfigFileName
	}

	if config.Exists(path) {
		fmt.Println("cinevec is already initialized in this directory.")
		fmt.Printf("Configuration: %s\n", path)
		return nil
	}

	cfg := config.DefaultConfig()

	if initProvider == "" && !initNonInteractive {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("\nSelect embedding provider:")
		fmt.Println("  1) gemini (cloud, free tier, requires GEMINI_API_KEY)")
		fmt.Println("  2) openai (cloud, requires OPENAI_API_KEY)")
		fmt.Println("  3) ollama (local, privacy-first, requires Ollama running)")
		fmt.Println("  4) cohere (cloud, requires COHERE_API_KEY)")
		fmt.Print("Choice [1]: ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "2", "openai":
			initProvider = "openai"
		case "3", "ollama":
			initProvider = "ollama"
		case "4", "cohere":
			initProvider = "cohere"
		default:
			initProvider = "gemini"
		}
	}

	if initProvider != "" {
		cfg.Embedding.Provider = initProvider
	}
	if cfg.Embedding.Provider == "ollama" {
		cfg.Embedding.Endpoint = "http://localhost:11434"
		cfg.Embedding.Model = "nomic-embed-text"
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("\nCreated configuration at %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Embed your catalog: cinevec run --catalog movies.csv")
	fmt.Println("  2. Check progress anytime: cinevec status")

	switch cfg.Embedding.Provider {
	case "gemini":
		fmt.Println("\nMake sure GEMINI_API_KEY is set in your environment.")
	case "openai":
		fmt.Println("\nMake sure OPENAI_API_KEY is set in your environment.")
	case "cohere":
		fmt.Println("\nMake sure COHERE_API_KEY is set in your environment.")
	case "ollama":
		fmt.Println("\nMake sure Ollama is running with the nomic-embed-text model:")
		fmt.Println("  ollama pull nomic-embed-text")
	}

	return nil
}
