package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/crm/internal/paths"
	"github.com/mesh-intelligence/crm/pkg/types"
)

// configFile is the structure written to config.yaml.
type configFile struct {
	Backend string             `yaml:"backend"`
	DataDir string             `yaml:"data_dir,omitempty"`
	HTTP    httpSection        `yaml:"http"`
	SQLite  types.SQLiteConfig `yaml:"sqlite"`
	Log     logSection         `yaml:"log"`
}

type httpSection struct {
	Addr        string   `yaml:"addr"`
	APIPrefix   string   `yaml:"api_prefix"`
	CORSOrigins []string `yaml:"cors_origins"`
	Mode        string   `yaml:"mode"`
}

type logSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize crm configuration and storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nif none exists, then create the database schema.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a)
		},
	}
}

func runInit(cmd *cobra.Command, a *app) error {
	if err := os.MkdirAll(a.configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	configPath := paths.ConfigFile(a.configDir)
	written, err := writeConfigIfMissing(configPath, a.settings)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	store, err := a.attach()
	if err != nil {
		return err
	}
	if err := store.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, map[string]any{
			"config_file":    configPath,
			"config_written": written,
			"data_dir":       a.settings.store.DataDir,
		})
	}
	if written {
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	}
	fmt.Fprintf(out, "CRM initialized in %s\n", a.settings.store.DataDir)
	return nil
}

// writeConfigIfMissing creates config.yaml from the resolved settings. An
// existing file is left untouched and reported as not written.
func writeConfigIfMissing(path string, s *settings) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	cfg := configFile{
		Backend: s.store.Backend,
		DataDir: s.store.DataDir,
		HTTP: httpSection{
			Addr:        s.server.Addr,
			APIPrefix:   s.server.APIPrefix,
			CORSOrigins: s.server.CORSOrigins,
			Mode:        s.server.Mode,
		},
		SQLite: types.SQLiteConfig{
			MaxOpenConns:     s.store.SQLiteConfig.GetMaxOpenConns(),
			MaxIdleConns:     s.store.SQLiteConfig.GetMaxIdleConns(),
			BusyTimeoutMS:    int(s.store.SQLiteConfig.GetBusyTimeout().Milliseconds()),
			AcquireTimeoutMS: int(s.store.SQLiteConfig.GetAcquireTimeout().Milliseconds()),
		},
		Log: logSection{Level: s.log.Level, Format: s.log.Format},
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
