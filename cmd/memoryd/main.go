// Command memoryd is the CLI front end for the semantic memory engine: a
// cobra root command dispatching to inject-context, capture-event,
// server, and repl, following the same per-verb-file layout as the
// teacher's cmd/vc.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memkit/memoryd/internal/app"
	"github.com/memkit/memoryd/internal/config"
)

var (
	cfgPath string
	theApp  *app.App
)

var rootCmd = &cobra.Command{
	Use:           "memoryd",
	Short:         "Process-local semantic memory engine for a developer-assistant agent",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		theApp = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if theApp == nil {
			return nil
		}
		return theApp.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		emitError(err)
		os.Exit(1)
	}
}

// errorEnvelope is the CLI's fixed error shape, per §6/§7.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// emitError writes {error:{code,message}} to stderr per spec §7's
// user-visible error contract.
func emitError(err error) {
	var env errorEnvelope
	env.Error.Code = errCode(err)
	env.Error.Message = err.Error()
	data, marshalErr := json.Marshal(env)
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "{\"error\":{\"code\":\"internal\",\"message\":%q}}\n", err.Error())
		return
	}
	fmt.Fprintln(os.Stderr, string(data))
}
