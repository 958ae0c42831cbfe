package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/penflow/penflow/internal/api"
	"github.com/penflow/penflow/internal/prefs"
	"github.com/penflow/penflow/types"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configName = ".penflow"
	envPrefix  = "PENFLOW"
)

// GlobalAppConfig holds the global application configuration instance.
var GlobalAppConfig types.AppConfig

// validate is a single validator instance, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// validateAppConfig performs validation on the AppConfig struct.
func validateAppConfig(config *types.AppConfig) error {
	return validate.Struct(config)
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// Load .env file first if present. It's okay if it doesn't exist.
	_ = godotenv.Load()

	// Environment variable handling must be set up BEFORE reading the
	// config file so env vars can influence config loading.
	viper.SetEnvPrefix(envPrefix) // e.g., PENFLOW_VERBOSE
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfgFileFlag := viper.GetString("config")

	projectConfigDir := viper.GetString("project.rootDir")
	if projectConfigDir == "" {
		projectConfigDir = ".penflow"
	}

	if cfgFileFlag != "" {
		viper.SetConfigFile(cfgFileFlag)
	} else {
		if _, err := os.Stat(projectConfigDir); !os.IsNotExist(err) {
			// Project-specific config directory exists. Prioritize it.
			viper.AddConfigPath(projectConfigDir) // ./.penflow/.penflow.yaml
			viper.SetConfigName(configName)
		} else {
			home, err := os.UserHomeDir()
			cobra.CheckErr(err)
			viper.AddConfigPath(home) // $HOME/.penflow.yaml
			viper.AddConfigPath(".")  // ./.penflow.yaml
			viper.SetConfigName(configName)
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if cfgFileFlag != "" {
				fmt.Fprintln(os.Stderr, "Error: Specified config file not found:", cfgFileFlag)
			} else if viper.GetBool("verbose") {
				fmt.Fprintln(os.Stderr, "No config file found. Using defaults and environment variables.")
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error reading config file:", viper.ConfigFileUsed(), "-", err)
		}
	}

	// Set default values
	viper.SetDefault("project.rootDir", ".penflow")
	viper.SetDefault("project.prefsFile", "prefs.json")
	viper.SetDefault("project.prefsFormat", "json")

	viper.SetDefault("service.baseUrl", "http://localhost:8787")
	viper.SetDefault("service.token", "")
	viper.SetDefault("service.requestTimeoutSeconds", types.DefaultRequestTimeout)

	viper.SetDefault("optimize.mode", "auto")
	viper.SetDefault("optimize.scope", "full")
	viper.SetDefault("optimize.startTimeoutSeconds", types.DefaultStartTimeoutSeconds)
	viper.SetDefault("optimize.cancelGraceSeconds", types.DefaultCancelGraceSeconds)
	viper.SetDefault("optimize.undoDepth", types.DefaultUndoDepth)
	viper.SetDefault("optimize.thinkingLogCap", types.DefaultThinkingLogCap)

	if err := viper.Unmarshal(&GlobalAppConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling config: %s\n", err)
		os.Exit(1)
	}

	GlobalAppConfig.ApplyDefaults()

	if err := validateAppConfig(&GlobalAppConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation error: %s\n", err)
		os.Exit(1)
	}
}

// GetConfig returns a pointer to the global types.AppConfig instance.
func GetConfig() *types.AppConfig {
	return &GlobalAppConfig
}

// GetPrefsFilePath returns the full path to the per-document prefs file.
func GetPrefsFilePath() string {
	config := GetConfig()
	return filepath.Join(config.Project.RootDir, config.Project.PrefsFile)
}

// GetPrefsStore initializes and returns the document preferences store.
func GetPrefsStore() (*prefs.Store, error) {
	config := GetConfig()
	s, err := prefs.NewStore(afero.NewOsFs(), GetPrefsFilePath(), config.Project.PrefsFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prefs store at %s: %w", GetPrefsFilePath(), err)
	}
	return s, nil
}

// NewServiceClient builds the analysis-service client from the config.
func NewServiceClient() *api.Client {
	config := GetConfig()
	timeout := time.Duration(config.Service.RequestTimeoutSeconds) * time.Second
	return api.NewClient(config.Service.BaseURL, config.Service.Token, timeout)
}
