package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/memkit/memoryd/internal/storageengine"
	"github.com/memkit/memoryd/internal/types"
)

// debugREPL drives inject-context/capture-event against the live
// in-process engine, for manually exercising memoryd without a separate
// agent process attached over RPC.
type debugREPL struct {
	rl       *readline.Instance
	rlClosed bool
	rlMu     sync.Mutex

	workspaceID string
	sessionID   string
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive debug shell for inject-context/capture-event",
	RunE: func(cmd *cobra.Command, args []string) error {
		workspaceID, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving workspace: %w", err)
		}
		r := &debugREPL{workspaceID: workspaceID}
		return r.run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func (r *debugREPL) closeReadline() error {
	r.rlMu.Lock()
	defer r.rlMu.Unlock()
	if r.rlClosed || r.rl == nil {
		return nil
	}
	r.rlClosed = true
	return r.rl.Close()
}

func replCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("/quit"),
		readline.PcItem("/exit"),
		readline.PcItem("/help"),
		readline.PcItem("/session"),
		readline.PcItem("/stats"),
		readline.PcItem("capture "),
		readline.PcItem("ask "),
	)
}

func (r *debugREPL) run(cmd *cobra.Command) error {
	cyan := color.New(color.FgCyan).SprintFunc()

	sess, err := theApp.Sessions.GetOrCreate(cmd.Context(), r.workspaceID, "")
	if err != nil {
		return err
	}
	r.sessionID = sess.ID

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("memoryd> "),
		HistoryLimit:      1000,
		AutoComplete:      replCompleter(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	r.rl = rl
	defer func() {
		if err := r.closeReadline(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close readline: %v\n", err)
		}
	}()

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := r.processInput(cmd, line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

func (r *debugREPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Println()
	fmt.Printf("%s\n", cyan("memoryd debug shell"))
	fmt.Printf("%s\n", gray("type 'capture <text>' to record an event, 'ask <prompt>' to build context, /quit to leave"))
	fmt.Println()
}

func (r *debugREPL) processInput(cmd *cobra.Command, line string) error {
	switch line {
	case "/quit", "/exit":
		return io.EOF
	case "/help":
		r.printWelcome()
		return nil
	case "/session":
		fmt.Printf("session: %s\n", r.sessionID)
		return nil
	case "/stats":
		stats := theApp.Engine.Stats()
		fmt.Printf("captures=%d queries=%d side_write_failures=%d\n", stats.Captures, stats.Queries, stats.SideWriteFailures)
		return nil
	}

	switch {
	case strings.HasPrefix(line, "capture "):
		return r.capture(cmd, strings.TrimPrefix(line, "capture "))
	case strings.HasPrefix(line, "ask "):
		return r.ask(cmd, strings.TrimPrefix(line, "ask "))
	default:
		return r.ask(cmd, line)
	}
}

func (r *debugREPL) capture(cmd *cobra.Command, content string) error {
	event := types.Event{
		EventType:   types.EventComment,
		Content:     content,
		Timestamp:   time.Now(),
		SessionID:   r.sessionID,
		WorkspaceID: r.workspaceID,
	}
	captured, err := theApp.Engine.Capture(cmd.Context(), event)
	if err != nil {
		return err
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s captured %s\n", green("✓"), captured.ID)
	return nil
}

func (r *debugREPL) ask(cmd *cobra.Command, prompt string) error {
	events, err := theApp.Engine.Query(cmd.Context(), storageengine.Filters{
		WorkspaceID:   r.workspaceID,
		SessionID:     r.sessionID,
		SemanticQuery: prompt,
		Limit:         10,
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

	artifact, err := theApp.Context.Build(entries)
	if err != nil {
		return err
	}
	fmt.Println(artifact)
	return nil
}
