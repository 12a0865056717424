package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lambethcyclists/mailroom/internal/drive"
	"github.com/lambethcyclists/mailroom/internal/google"
)

func newAuthCmd() *cobra.Command {
	var folderName string
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run the one-time Google OAuth consent flow",
		Long: `Walk through the manual OAuth grant that produces the refresh token the
service runs on. Prints the consent URL, reads the authorization code
back, and prints the value to put in GMAIL_REFRESH_TOKEN.

With --drive-folder the command also finds or creates the Drive folder
attachments are uploaded to and prints its ID for
GOOGLE_DRIVE_FOLDER_ID.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := google.Credentials{
				ClientID:     os.Getenv("GMAIL_CLIENT_ID"),
				ClientSecret: os.Getenv("GMAIL_CLIENT_SECRET"),
			}
			if creds.ClientID == "" || creds.ClientSecret == "" {
				return fmt.Errorf("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open this URL in a browser and grant access:")
			fmt.Fprintln(out)
			fmt.Fprintln(out, creds.AuthURL())
			fmt.Fprintln(out)
			fmt.Fprint(out, "Paste the authorization code here: ")

			code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code entered")
			}

			ctx := cmd.Context()
			token, err := creds.Exchange(ctx, code)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "GMAIL_REFRESH_TOKEN=%s\n", token.RefreshToken)

			if folderName == "" {
				return nil
			}
			creds.RefreshToken = token.RefreshToken
			hc, err := creds.HTTPClient(ctx)
			if err != nil {
				return err
			}
			dc, err := drive.NewClient(ctx, hc, "")
			if err != nil {
				return err
			}
			folderID, err := dc.EnsureFolder(ctx, folderName)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "GOOGLE_DRIVE_FOLDER_ID=%s\n", folderID)
			return nil
		},
	}
	cmd.Flags().StringVar(&folderName, "drive-folder", "",
		"also find or create this Drive folder and print its ID")
	return cmd
}
