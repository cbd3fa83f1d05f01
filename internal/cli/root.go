// Package cli implements the crm command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crm/internal/paths"
	"github.com/mesh-intelligence/crm/internal/sqlite"
	"github.com/mesh-intelligence/crm/pkg/crm"
	"github.com/mesh-intelligence/crm/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app carries the state shared by the subcommands of one invocation.
type app struct {
	flags     rootFlags
	configDir string
	settings  *settings
	logger    *slog.Logger
}

// NewRootCmd creates the top-level "crm" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "crm",
		Short:   "A small CRM backend for clients, contacts, activities and opportunities",
		Version: crm.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir/crm)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir/crm)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newSummaryCmd(a))
	root.AddCommand(newClientCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newImportCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps user mistakes to 1 and everything else to 2.
func exitCode(err error) int {
	if errors.Is(err, types.ErrNotFound) || types.IsValidation(err) {
		return exitUserError
	}
	return exitSysError
}

// load resolves directories, .env, config.yaml and the logger.
func (a *app) load(cmd *cobra.Command) error {
	if err := loadDotEnv(); err != nil {
		return err
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	s, err := resolveSettings(v, a.flags.dataDir)
	if err != nil {
		return err
	}
	logger, err := newLogger(s.log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.configDir = configDir
	a.settings = s
	a.logger = logger
	return nil
}

// attach opens the store described by the resolved settings.
func (a *app) attach() (*sqlite.Backend, error) {
	b := sqlite.NewBackend(sqlite.WithLogger(a.logger))
	if err := b.Attach(a.settings.store); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return b, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printTable writes rows with aligned columns, trimming trailing blanks.
func printTable(w io.Writer, header []string, rows [][]string) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// deref returns the pointed string or "-".
func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
