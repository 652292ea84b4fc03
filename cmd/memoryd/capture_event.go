package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/memkit/memoryd/internal/types"
)

var (
	captureTool    string
	captureContent string
	captureStatus  string
	captureSession string
)

type capturedResult struct {
	Type        string `json:"type"`
	MemoryID    string `json:"memoryId"`
	WorkspaceID string `json:"workspaceId"`
	SessionID   string `json:"sessionId"`
}

var captureEventCmd = &cobra.Command{
	Use:   "capture-event",
	Short: "Record one observation event",
	RunE: func(cmd *cobra.Command, args []string) error {
		if captureContent == "" {
			return fmt.Errorf("--content is required")
		}

		workspaceID, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving workspace: %w", err)
		}

		sess, err := theApp.Sessions.GetOrCreate(cmd.Context(), workspaceID, captureSession)
		if err != nil {
			return err
		}

		eventType := types.EventToolUse
		metadata := map[string]interface{}{}
		if captureTool != "" {
			metadata["tool"] = captureTool
		}
		if captureStatus != "" {
			metadata["status"] = captureStatus
		}

		event := types.Event{
			EventType:   eventType,
			Content:     captureContent,
			Metadata:    metadata,
			Timestamp:   time.Now(),
			SessionID:   sess.ID,
			WorkspaceID: workspaceID,
		}

		captured, err := theApp.Engine.Capture(cmd.Context(), event)
		if err != nil {
			return err
		}

		return emitJSON(capturedResult{
			Type:        "captured",
			MemoryID:    captured.ID,
			WorkspaceID: workspaceID,
			SessionID:   sess.ID,
		})
	},
}

func init() {
	captureEventCmd.Flags().StringVar(&captureTool, "tool", "", "name of the tool that produced this event")
	captureEventCmd.Flags().StringVar(&captureContent, "content", "", "event content (required)")
	captureEventCmd.Flags().StringVar(&captureStatus, "status", "", "outcome status of the originating action")
	captureEventCmd.Flags().StringVar(&captureSession, "session", "", "existing session id to continue, if any")
	rootCmd.AddCommand(captureEventCmd)
}
