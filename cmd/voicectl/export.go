package main

import (
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var (
		baseURL string
		token   string
		from    string
		to      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the command audit trail as CSV",
		Long:  `Write every command created between --from and --to (inclusive, YYYY-MM-DD) to stdout as CSV.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return newAPIClient(baseURL, token).exportCommands(cmd.Context(), from, to, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "assistant API base URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (see voicectl token)")
	cmd.Flags().StringVar(&from, "from", "", "first day (defaults to 30 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "last day (defaults to today)")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}
