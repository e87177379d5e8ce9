package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/nbtriage/console"
)

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Preview the triage settings dialog",
		Long: `Open the settings dialog with the default settings and print the result.
Settings are session-scoped; this command exists to try the dialog and
inspect what each field produces.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := newSession()

			settings, accepted, err := console.Dialog{}.Open(cmd.Context(), session.Snapshot())
			if err != nil {
				return fmt.Errorf("dialog failed: %w", err)
			}
			if !accepted {
				fmt.Println("Cancelled; settings unchanged.")
				return nil
			}
			session.Apply(settings)

			fmt.Println("Session settings:")
			fmt.Printf("  credential:      %s\n", maskCredential(settings.Credential))
			fmt.Printf("  language:        %s\n", settings.Language)
			fmt.Printf("  prompt template: %s\n", strings.TrimSpace(settings.PromptTemplate))
			fmt.Println("\nSettings apply for one process run only; use NBTRIAGE_API_KEY to seed the credential.")
			return nil
		},
	}
}

func maskCredential(credential string) string {
	if credential == "" {
		return "(not set)"
	}
	if len(credential) <= 8 {
		return "****"
	}
	return credential[:4] + "..." + credential[len(credential)-4:]
}
