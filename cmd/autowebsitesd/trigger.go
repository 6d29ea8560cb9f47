package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

var (
	triggerAddr      string
	triggerToken     string
	triggerOverrides string
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Start a cycle on a running daemon",
	Long: `Ask a running daemon to start an outreach cycle now. Admission gates
still apply; the command prints the scheduler's answer either way.`,
	RunE: runTrigger,
}

func init() {
	triggerCmd.Flags().StringVar(&triggerAddr, "addr", "http://localhost:8080", "daemon base URL")
	triggerCmd.Flags().StringVar(&triggerToken, "token", "", "bearer token, if the API requires auth")
	triggerCmd.Flags().StringVar(&triggerOverrides, "overrides", "", `campaign overrides as JSON, e.g. '{"max_leads": 5}'`)
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, _ []string) error {
	var body io.Reader
	if triggerOverrides != "" {
		body = strings.NewReader(triggerOverrides)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
		strings.TrimRight(triggerAddr, "/")+"/v1/runs/trigger", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if triggerToken != "" {
		req.Header.Set("Authorization", "Bearer "+triggerToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("reach daemon at %s: %w", triggerAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&e); decodeErr == nil && e.Error.Message != "" {
			return fmt.Errorf("trigger refused (%d): %s", resp.StatusCode, e.Error.Message)
		}
		return fmt.Errorf("trigger failed: status %d", resp.StatusCode)
	}

	var ack struct {
		RunID   string `json:"run_id"`
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if ack.RunID != "" {
		fmt.Printf("%s %s\n", ack.Outcome, ack.RunID)
	} else {
		fmt.Println(ack.Outcome)
	}
	return nil
}
