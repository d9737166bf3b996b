package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version    string
	configPath string

	rootCmd = &cobra.Command{
		Use:   "cinevec",
		Short: "Movie embedding pipeline",
		Long: `cinevec turns a CSV movie catalog into vector embeddings.

It batches records through an embedding provider (Gemini, OpenAI, Ollama
or Cohere), saves progress after every batch, and resumes exactly where
it left off when interrupted. Optional Wikipedia enrichment adds summary
and plot embeddings per movie.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func SetVersion(v string) {
	version = v
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ./cinevec.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(searchCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cinevec version %s\n", version)
	},
}
