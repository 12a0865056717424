package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mailroom service
var rootCmd = &cobra.Command{
	Use:   "mailroom",
	Short: "Turns committee email into structured Notion records",
	Long: `mailroom watches a Gmail label for inbound committee email, extracts
structured data with Claude, geocodes the locations it mentions, archives
attachments to Google Drive, and writes linked Item, Project, and Meeting
records into Notion. It also generates meeting agendas and sends approval
reminders.

It can run as:
  - A long-running service with both polling loops (default)
  - A one-shot email processing cycle (process)
  - A one-shot meeting agenda check (meetings)
  - A one-time OAuth setup flow (auth)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailroom version %s\n" .Version}}`)

	// If no subcommand is provided, run the service by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "run")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newMeetingsCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
