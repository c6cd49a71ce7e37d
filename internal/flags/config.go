package flags

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mozilla-ai/mcpfleet/internal/files"
)

const (
	// Env vars
	EnvVarConfigFile = "MCPFLEET_CONFIG_FILE"
	EnvVarEnvName    = "MCPFLEET_ENV"
	EnvVarLocalFile  = "MCPFLEET_LOCAL_FILE"
	EnvVarLogPath    = "MCPFLEET_LOG_PATH"
	EnvVarLogLevel   = "MCPFLEET_LOG_LEVEL"
	EnvVarAuditLog   = "MCPFLEET_AUDIT_LOG"

	// Defaults
	DefaultConfigFile = "mcpfleet.toml"
	DefaultEnvName    = ""
	DefaultLocalFile  = "mcpfleet.local.toml"
	DefaultLogPath    = ""
	DefaultLogLevel   = "info"
	DefaultAuditLog   = "events.jsonl"

	// Flag names
	FlagNameConfigFile = "config-file"
	FlagNameEnvName    = "env"
	FlagNameLocalFile  = "local-file"
	FlagNameLogPath    = "log-path"
	FlagNameLogLevel   = "log-level"
	FlagNameAuditLog   = "audit-log"
)

var (
	ConfigFile string
	EnvName    string
	LocalFile  string
	LogPath    string
	LogLevel   string
	AuditLog   string
)

func InitFlags(fs *pflag.FlagSet) error {
	initConfigFile(fs)
	initEnvName(fs)
	if err := initLocalFile(fs); err != nil {
		return err
	}
	initLogger(fs)
	if err := initAuditLog(fs); err != nil {
		return err
	}

	return nil
}

func initConfigFile(fs *pflag.FlagSet) {
	if ConfigFile == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarConfigFile)); env != "" {
			ConfigFile = env
		} else {
			ConfigFile = DefaultConfigFile
		}
	}
	fs.StringVar(&ConfigFile, FlagNameConfigFile, ConfigFile, "path to base config file")
}

func initEnvName(fs *pflag.FlagSet) {
	if EnvName == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarEnvName)); env != "" {
			EnvName = strings.ToLower(env)
		} else {
			EnvName = DefaultEnvName
		}
	}
	fs.StringVar(&EnvName, FlagNameEnvName, EnvName, "environment name selecting the config overlay file")
}

// initLocalFile resolves the path to the uncommitted local override file.
// A bare default filename (no explicit path) lands in the user-specific
// config directory so credentials never end up inside a repository.
func initLocalFile(fs *pflag.FlagSet) error {
	if LocalFile == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLocalFile)); env != "" {
			LocalFile = env
		} else {
			LocalFile = DefaultLocalFile
		}
	}

	if LocalFile == DefaultLocalFile {
		dir, err := files.UserSpecificConfigDir()
		if err != nil {
			return fmt.Errorf("error resolving local override file path: %w", err)
		}
		LocalFile = filepath.Join(dir, DefaultLocalFile)
	}

	fs.StringVar(&LocalFile, FlagNameLocalFile, LocalFile, "path to local override config file")

	return nil
}

func initLogger(fs *pflag.FlagSet) {
	if LogPath == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogPath)); env != "" {
			LogPath = env
		} else {
			LogPath = DefaultLogPath
		}
	}
	fs.StringVar(&LogPath, FlagNameLogPath, LogPath, "path to generated log file")

	if LogLevel == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogLevel)); env != "" {
			LogLevel = strings.ToLower(env)
		} else {
			LogLevel = DefaultLogLevel
		}
	}
	fs.StringVar(&LogLevel, FlagNameLogLevel, LogLevel, "log level for mcpfleet logs")
}

// initAuditLog resolves the audit event log path, defaulting to the
// user-specific state directory. An empty value set via the flag disables
// audit logging entirely.
func initAuditLog(fs *pflag.FlagSet) error {
	if AuditLog == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarAuditLog)); env != "" {
			AuditLog = env
		} else {
			AuditLog = DefaultAuditLog
		}
	}

	if AuditLog == DefaultAuditLog {
		dir, err := files.UserSpecificStateDir()
		if err != nil {
			return fmt.Errorf("error resolving audit log path: %w", err)
		}
		AuditLog = filepath.Join(dir, DefaultAuditLog)
	}

	fs.StringVar(&AuditLog, FlagNameAuditLog, AuditLog, "path to the audit event log")

	return nil
}
