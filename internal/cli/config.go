// Config loading for the crm CLI.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/crm/internal/paths"
	"github.com/mesh-intelligence/crm/internal/server"
	"github.com/mesh-intelligence/crm/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "CRM"
	dotEnvFile     = ".env"
)

// Config keys.
const (
	cfgKeyBackend          = "backend"
	cfgKeyDataDir          = "data_dir"
	cfgKeyHTTPAddr         = "http.addr"
	cfgKeyHTTPAPIPrefix    = "http.api_prefix"
	cfgKeyHTTPCORSOrigins  = "http.cors_origins"
	cfgKeyHTTPMode         = "http.mode"
	cfgKeyMaxOpenConns     = "sqlite.max_open_conns"
	cfgKeyMaxIdleConns     = "sqlite.max_idle_conns"
	cfgKeyBusyTimeoutMS    = "sqlite.busy_timeout_ms"
	cfgKeyAcquireTimeoutMS = "sqlite.acquire_timeout_ms"
	cfgKeyLogLevel         = "log.level"
	cfgKeyLogFormat        = "log.format"
)

// envKeys are the keys overridable through CRM_* variables. data_dir is
// absent: its environment override is resolved by the paths package.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyHTTPAddr, cfgKeyHTTPAPIPrefix, cfgKeyHTTPCORSOrigins, cfgKeyHTTPMode,
	cfgKeyMaxOpenConns, cfgKeyMaxIdleConns, cfgKeyBusyTimeoutMS, cfgKeyAcquireTimeoutMS,
	cfgKeyLogLevel, cfgKeyLogFormat,
}

// settings is the resolved configuration handed to the commands.
type settings struct {
	store  types.Config
	server server.Config
	log    logConfig
}

// loadDotEnv loads .env from the working directory into the process
// environment. Variables already set win; a missing file is not an error.
func loadDotEnv() error {
	err := godotenv.Load(dotEnvFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotEnvFile, err)
	}
	return nil
}

// loadConfig reads config.yaml from configDir with viper and layers the
// CRM_* environment on top. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyHTTPAddr, server.DefaultAddr)
	v.SetDefault(cfgKeyHTTPAPIPrefix, server.DefaultAPIPrefix)
	v.SetDefault(cfgKeyHTTPCORSOrigins, []string{"*"})
	v.SetDefault(cfgKeyHTTPMode, "release")
	v.SetDefault(cfgKeyMaxOpenConns, types.DefaultMaxOpenConns)
	v.SetDefault(cfgKeyMaxIdleConns, types.DefaultMaxIdleConns)
	v.SetDefault(cfgKeyBusyTimeoutMS, types.DefaultBusyTimeoutMS)
	v.SetDefault(cfgKeyAcquireTimeoutMS, types.DefaultAcquireTimeoutMS)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, logFormatText)
}

// resolveSettings combines the loaded config with the directory flags.
func resolveSettings(v *viper.Viper, dataDirFlag string) (*settings, error) {
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	s := &settings{
		store: types.Config{
			Backend: v.GetString(cfgKeyBackend),
			DataDir: dataDir,
			SQLiteConfig: &types.SQLiteConfig{
				MaxOpenConns:     v.GetInt(cfgKeyMaxOpenConns),
				MaxIdleConns:     v.GetInt(cfgKeyMaxIdleConns),
				BusyTimeoutMS:    v.GetInt(cfgKeyBusyTimeoutMS),
				AcquireTimeoutMS: v.GetInt(cfgKeyAcquireTimeoutMS),
			},
		},
		server: server.Config{
			Addr:        v.GetString(cfgKeyHTTPAddr),
			APIPrefix:   v.GetString(cfgKeyHTTPAPIPrefix),
			CORSOrigins: splitList(v.GetStringSlice(cfgKeyHTTPCORSOrigins)),
			Mode:        v.GetString(cfgKeyHTTPMode),
		},
		log: logConfig{
			Level:  v.GetString(cfgKeyLogLevel),
			Format: v.GetString(cfgKeyLogFormat),
		},
	}
	if err := s.store.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
