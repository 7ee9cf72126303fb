package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"pricewatch/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "PW_LOG_LEVEL")
	viper.BindEnv("scheduler.interval", "PW_REFRESH_INTERVAL")
	viper.BindEnv("scheduler.maxConcurrency", "PW_MAX_CONCURRENCY")
	viper.BindEnv("history.driver", "PW_HISTORY_DRIVER")
	viper.BindEnv("history.dsn", "PW_PG_DSN")
	viper.BindEnv("cache.enabled", "PW_CACHE_ENABLED")
	viper.BindEnv("cache.size", "PW_CACHE_SIZE")
	viper.BindEnv("extractor.aiEndpoint", "PW_AI_ENDPOINT")
	viper.BindEnv("search.endpoint", "PW_SEARCH_ENDPOINT")
	viper.BindEnv("alerts.webhookUrl", "PW_ALERT_WEBHOOK_URL")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	applyDefaults(&conf)

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "PriceWatchDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

func applyDefaults(conf *structures.Config) {
	if conf.Scheduler.MaxBackoff <= 0 {
		conf.Scheduler.MaxBackoff = 24 * time.Hour
	}
	if conf.Scheduler.BackoffCeiling <= 0 {
		conf.Scheduler.BackoffCeiling = 6
	}
	if conf.Scheduler.DormantThreshold <= 0 {
		conf.Scheduler.DormantThreshold = 12
	}
	if conf.Scheduler.PerSourceConcurrency <= 0 {
		conf.Scheduler.PerSourceConcurrency = 2
	}
	if conf.Sources.MinSpacing <= 0 {
		conf.Sources.MinSpacing = 2 * time.Second
	}
	if conf.Sources.UserAgent == "" {
		conf.Sources.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if conf.Extractor.ConfidenceThreshold <= 0 {
		conf.Extractor.ConfidenceThreshold = 0.9
	}
	if conf.Extractor.AITimeout <= 0 {
		conf.Extractor.AITimeout = 20 * time.Second
	}
	if conf.Extractor.MaxDocumentChars <= 0 {
		conf.Extractor.MaxDocumentChars = 20000
	}
	if conf.Search.Timeout <= 0 {
		conf.Search.Timeout = 15 * time.Second
	}
	if conf.Search.MaxCandidates <= 0 {
		conf.Search.MaxCandidates = 3
	}
	if conf.History.MaxPointsPerProduct <= 0 && conf.History.Driver == "memory" {
		conf.History.MaxPointsPerProduct = 360
	}
	if conf.Alerts.WebhookTimeout <= 0 {
		conf.Alerts.WebhookTimeout = 10 * time.Second
	}
}
