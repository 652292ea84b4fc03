package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memkit/memoryd/internal/storageengine"
	"github.com/memkit/memoryd/internal/types"
)

var (
	injectPrompt  string
	injectTool    string
	injectSession string
)

type contextResult struct {
	Type        string `json:"type"`
	WorkspaceID string `json:"workspaceId"`
	SessionID   string `json:"sessionId"`
	MemoryCount int    `json:"memoryCount"`
}

var injectContextCmd = &cobra.Command{
	Use:   "inject-context",
	Short: "Build a size-bounded context block for the given prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		if injectPrompt == "" {
			return fmt.Errorf("--prompt is required")
		}

		workspaceID, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving workspace: %w", err)
		}

		sess, err := theApp.Sessions.GetOrCreate(cmd.Context(), workspaceID, injectSession)
		if err != nil {
			return err
		}

		events, err := theApp.Engine.Query(cmd.Context(), storageengine.Filters{
			WorkspaceID:   workspaceID,
			SessionID:     sess.ID,
			SemanticQuery: injectPrompt,
			Limit:         20,
		})
		if err != nil {
			return err
		}

		entries := make([]types.ContextEntry, 0, len(events))
		for _, e := range events {
			entries = append(entries, types.ContextEntry{
				ID:        e.ID,
				Content:   e.Content,
				EventType: e.EventType,
				Timestamp: e.Timestamp,
				Metadata:  e.Metadata,
			})
		}

		if _, err := theApp.Context.Build(entries); err != nil {
			return err
		}
		stats := theApp.Context.GetLastBuildStats()

		result := contextResult{
			Type:        "context",
			WorkspaceID: workspaceID,
			SessionID:   sess.ID,
			MemoryCount: stats.OutputMemories,
		}
		return emitJSON(result)
	},
}

func init() {
	injectContextCmd.Flags().StringVar(&injectPrompt, "prompt", "", "prompt text driving the context query (required)")
	injectContextCmd.Flags().StringVar(&injectTool, "tool", "", "name of the calling tool, for future formatter hooks")
	injectContextCmd.Flags().StringVar(&injectSession, "session", "", "existing session id to continue, if any")
	rootCmd.AddCommand(injectContextCmd)
}

func emitJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
