package types

// AppConfig represents the complete application configuration
type AppConfig struct {
	Verbose  bool           `mapstructure:"verbose"`
	Config   string         `mapstructure:"config"`
	Project  ProjectConfig  `mapstructure:"project" validate:"required"`
	Service  ServiceConfig  `mapstructure:"service" validate:"required"`
	Optimize OptimizeConfig `mapstructure:"optimize" validate:"required"`
}

// ProjectConfig holds project-related settings
type ProjectConfig struct {
	RootDir     string `mapstructure:"rootDir" validate:"required"`
	PrefsFile   string `mapstructure:"prefsFile" validate:"required"`
	PrefsFormat string `mapstructure:"prefsFormat" validate:"required,oneof=json yaml toml"`
}

// ServiceConfig holds settings for the remote analysis service.
type ServiceConfig struct {
	BaseURL               string `mapstructure:"baseUrl" validate:"required,url"`
	Token                 string `mapstructure:"token" validate:"omitempty,min=1"`
	RequestTimeoutSeconds int    `mapstructure:"requestTimeoutSeconds" validate:"omitempty,min=1"`
}

// OptimizeConfig holds defaults and tunables for optimization sessions.
type OptimizeConfig struct {
	Mode       string   `mapstructure:"mode" validate:"omitempty,oneof=auto review plan"`
	Scope      string   `mapstructure:"scope" validate:"omitempty,oneof=full selected"`
	Dimensions []string `mapstructure:"dimensions" validate:"omitempty,dive,min=1"`

	// StartTimeoutSeconds bounds how long a start request may sit with no
	// state-advancing event before the session is declared stuck.
	StartTimeoutSeconds int `mapstructure:"startTimeoutSeconds" validate:"omitempty,min=1"`

	// CancelGraceSeconds bounds how long a cancel waits for the server
	// acknowledgement before the client force-resets locally.
	CancelGraceSeconds int `mapstructure:"cancelGraceSeconds" validate:"omitempty,min=1"`

	UndoDepth      int `mapstructure:"undoDepth" validate:"omitempty,min=1"`
	ThinkingLogCap int `mapstructure:"thinkingLogCap" validate:"omitempty,min=1"`
}

// Defaults applied when the config file leaves a field unset.
const (
	DefaultStartTimeoutSeconds = 8
	DefaultCancelGraceSeconds  = 3
	DefaultUndoDepth           = 50
	DefaultThinkingLogCap      = 200
	DefaultRequestTimeout      = 30
)

// ApplyDefaults fills zero-valued tunables with their defaults.
func (c *AppConfig) ApplyDefaults() {
	if c.Service.RequestTimeoutSeconds == 0 {
		c.Service.RequestTimeoutSeconds = DefaultRequestTimeout
	}
	if c.Optimize.StartTimeoutSeconds == 0 {
		c.Optimize.StartTimeoutSeconds = DefaultStartTimeoutSeconds
	}
	if c.Optimize.CancelGraceSeconds == 0 {
		c.Optimize.CancelGraceSeconds = DefaultCancelGraceSeconds
	}
	if c.Optimize.UndoDepth == 0 {
		c.Optimize.UndoDepth = DefaultUndoDepth
	}
	if c.Optimize.ThinkingLogCap == 0 {
		c.Optimize.ThinkingLogCap = DefaultThinkingLogCap
	}
	if c.Optimize.Mode == "" {
		c.Optimize.Mode = "auto"
	}
	if c.Optimize.Scope == "" {
		c.Optimize.Scope = "full"
	}
}
