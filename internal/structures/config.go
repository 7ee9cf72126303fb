package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type SchedulerConfig struct {
	Interval             time.Duration `yaml:"interval" validate:"required|min:1"`
	BaseCheckInterval    time.Duration `yaml:"baseCheckInterval" validate:"required|min:1"`
	MaxBackoff           time.Duration `yaml:"maxBackoff"`
	BackoffCeiling       int           `yaml:"backoffCeiling"`
	DormantThreshold     int           `yaml:"dormantThreshold"`
	MaxConcurrency       int           `yaml:"maxConcurrency" validate:"required|min:1"`
	PerSourceConcurrency int           `yaml:"perSourceConcurrency"`
}

type SourcesConfig struct {
	MinSpacing   time.Duration `yaml:"minSpacing"`
	FetchTimeout time.Duration `yaml:"fetchTimeout" validate:"required|min:1"`
	UserAgent    string        `yaml:"userAgent"`
}

type ExtractorConfig struct {
	ConfidenceThreshold float64       `yaml:"confidenceThreshold"`
	AIEndpoint          string        `yaml:"aiEndpoint"`
	AITimeout           time.Duration `yaml:"aiTimeout"`
	MaxDocumentChars    int           `yaml:"maxDocumentChars"`
}

type SearchConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxCandidates int           `yaml:"maxCandidates"`
}

type HistoryConfig struct {
	Driver              string `yaml:"driver" validate:"required|in:memory,postgres"`
	DSN                 string `yaml:"dsn"`
	MaxPointsPerProduct int    `yaml:"maxPointsPerProduct"`
}

type AlertsConfig struct {
	WebhookURL     string        `yaml:"webhookUrl"`
	WebhookTimeout time.Duration `yaml:"webhookTimeout"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server          `yaml:"webServer"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	Sources     SourcesConfig   `yaml:"sources"`
	Extractor   ExtractorConfig `yaml:"extractor"`
	Search      SearchConfig    `yaml:"search"`
	History     HistoryConfig   `yaml:"history"`
	Alerts      AlertsConfig    `yaml:"alerts"`
	Persistence Persistence     `yaml:"persistence"`
	Logger      LoggerConfig    `yaml:"logger"`
	Cache       CacheConfig     `yaml:"cache"`
	Metrics     MetricsConfig   `yaml:"metrics"`
}
