package contextbuilder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/memkit/memoryd/internal/types"
)

// Renderer turns one entry into its text representation. Registered
// per event type via RegisterFormatter, with first refusal over the
// built-in per-type renderers.
type Renderer func(entry types.ContextEntry, includeScore bool) string

func renderEntry(entry types.ContextEntry, includeScore bool, custom map[types.EventType]Renderer) string {
	if r, ok := custom[entry.EventType]; ok {
		return r(entry, includeScore)
	}
	switch entry.EventType {
	case types.EventCodeWrite:
		return renderCodeWrite(entry, includeScore)
	case types.EventCommandRun:
		return renderCommandRun(entry, includeScore)
	case types.EventTestRun:
		return renderTestRun(entry, includeScore)
	case types.EventGitCommit:
		return renderGitCommit(entry, includeScore)
	default:
		return renderGeneric(entry, includeScore)
	}
}

func scoreSuffix(entry types.ContextEntry, includeScore bool) string {
	if !includeScore {
		return ""
	}
	return fmt.Sprintf(" (score: %.3f)", entry.Score)
}

func renderCodeWrite(entry types.ContextEntry, includeScore bool) string {
	file, _ := entry.Metadata["file"].(string)
	language, _ := entry.Metadata["language"].(string)
	functions, _ := entry.Metadata["functions"].([]interface{})

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[code_write] %s%s\n", displayFile(file), scoreSuffix(entry, includeScore)))
	if language != "" {
		b.WriteString(fmt.Sprintf("language: %s\n", language))
	}
	if len(functions) > 0 {
		names := make([]string, 0, len(functions))
		for _, f := range functions {
			if s, ok := f.(string); ok {
				names = append(names, s)
			}
		}
		b.WriteString(fmt.Sprintf("functions: %s\n", strings.Join(names, ", ")))
	}
	b.WriteString(entry.Content)
	return b.String()
}

func displayFile(file string) string {
	if file == "" {
		return "(unknown file)"
	}
	return file
}

func renderCommandRun(entry types.ContextEntry, includeScore bool) string {
	command, _ := entry.Metadata["command"].(string)
	exitCode := entry.Metadata["exit_code"]
	duration := entry.Metadata["duration"]
	cwd, _ := entry.Metadata["cwd"].(string)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[command_run] %s%s\n", command, scoreSuffix(entry, includeScore)))
	if cwd != "" {
		b.WriteString(fmt.Sprintf("cwd: %s\n", cwd))
	}
	b.WriteString(fmt.Sprintf("exit_code: %v, duration: %v\n", exitCode, duration))
	b.WriteString(entry.Content)
	return b.String()
}

func renderTestRun(entry types.ContextEntry, includeScore bool) string {
	file, _ := entry.Metadata["file"].(string)
	passed := entry.Metadata["passed"]
	duration := entry.Metadata["duration"]

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[test_run] %s%s\n", displayFile(file), scoreSuffix(entry, includeScore)))
	b.WriteString(fmt.Sprintf("passed: %v, duration: %v\n", passed, duration))
	b.WriteString(entry.Content)
	return b.String()
}

func renderGitCommit(entry types.ContextEntry, includeScore bool) string {
	hash, _ := entry.Metadata["hash"].(string)
	branch, _ := entry.Metadata["branch"].(string)
	author, _ := entry.Metadata["author"].(string)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[git_commit] %s%s\n", hash, scoreSuffix(entry, includeScore)))
	if branch != "" {
		b.WriteString(fmt.Sprintf("branch: %s\n", branch))
	}
	if author != "" {
		b.WriteString(fmt.Sprintf("author: %s\n", author))
	}
	b.WriteString(entry.Content)
	return b.String()
}

func renderGeneric(entry types.ContextEntry, includeScore bool) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]%s\n", entry.EventType, scoreSuffix(entry, includeScore)))
	b.WriteString(entry.Content)
	if len(entry.Metadata) > 0 {
		keys := make([]string, 0, len(entry.Metadata))
		for k := range entry.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n")
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("%s: %v\n", k, entry.Metadata[k]))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
