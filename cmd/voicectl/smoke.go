package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/handler"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/service"
)

func smokeCmd() *cobra.Command {
	var (
		baseURL  string
		token    string
		deviceID string
		text     string
		month    string
		yes      bool
	)

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run one spoken turn end to end",
		Long: `Interpret an utterance, answer its confirmation prompt, and optionally read
the month's insights. Without --yes the prompt is answered from stdin.`,
		Example: `  voicectl smoke --token $TOKEN --text "Paguei uber 23,90"
  voicectl smoke --token $TOKEN --month 2026-02`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if text == "" && month == "" {
				return fmt.Errorf("one of --text or --month is required")
			}
			ctx := cmd.Context()
			client := newAPIClient(baseURL, token)
			out := cmd.OutOrStdout()

			if text != "" {
				resp, status, err := client.turn(ctx, handler.TurnRequest{
					TurnType: service.TurnInterpret,
					DeviceID: deviceID,
					Text:     text,
				})
				if err != nil {
					return err
				}
				printReply(out, status, resp)

				if status == http.StatusOK && resp.RequiresConfirmation && resp.CommandID != nil {
					confirmed, spoken := yes, "sim"
					if yes && len(resp.Options) > 0 {
						spoken = resp.Options[0].Name
					}
					if !yes {
						spoken, confirmed = ask(cmd.InOrStdin(), out, len(resp.Options) > 0)
					}
					method := string(assistant.MethodButton)
					if !yes {
						method = string(assistant.MethodVoice)
					}
					resp, status, err = client.turn(ctx, handler.TurnRequest{
						TurnType:   service.TurnConfirm,
						DeviceID:   deviceID,
						CommandID:  resp.CommandID.String(),
						Confirmed:  &confirmed,
						SpokenText: spoken,
						Method:     method,
					})
					if err != nil {
						return err
					}
					printReply(out, status, resp)
				}
			}

			if month != "" {
				resp, status, err := client.turn(ctx, handler.TurnRequest{
					TurnType: service.TurnInsights,
					DeviceID: deviceID,
					Month:    month,
				})
				if err != nil {
					return err
				}
				printReply(out, status, resp)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "assistant API base URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (see voicectl token)")
	cmd.Flags().StringVar(&deviceID, "device", "voicectl", "device id sent with each turn")
	cmd.Flags().StringVar(&text, "text", "", "utterance to interpret")
	cmd.Flags().StringVar(&month, "month", "", "month to narrate (YYYY-MM)")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm without prompting")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func printReply(w io.Writer, status int, resp *service.Response) {
	slog.Debug("turn reply", slog.Int("status", status), slog.String("intent", string(resp.Intent)))
	fmt.Fprintf(w, "[%d] %s\n", status, resp.SpeakText)
	for i, opt := range resp.Options {
		fmt.Fprintf(w, "  %d. %s\n", i+1, opt.Name)
	}
	if resp.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", resp.Error)
	}
}

// ask reads the user's answer. With options on screen the answer is the
// spoken category pick and always confirms.
func ask(in io.Reader, out io.Writer, picking bool) (string, bool) {
	if picking {
		fmt.Fprint(out, "> categoria: ")
	} else {
		fmt.Fprint(out, "> confirmar? [s/N] ")
	}
	line, _ := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimSpace(line)
	if picking {
		return line, true
	}
	switch strings.ToLower(line) {
	case "s", "sim", "y", "yes":
		return line, true
	default:
		return line, false
	}
}
