// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Service struct {
		Name        string `yaml:"name"`
		HTTPAddr    string `yaml:"http_addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"service"`

	Auth struct {
		Secret        string        `yaml:"secret"`
		TokenTTL      time.Duration `yaml:"token_ttl"`
		IssueDevToken bool          `yaml:"issue_dev_token"`
	} `yaml:"auth"`

	Audio struct {
		SampleRate int `yaml:"sample_rate"`
	} `yaml:"audio"`

	Meeting struct {
		GapFillMaxMillis  int64         `yaml:"gap_fill_max_millis"`
		MaxBufferedMillis int64         `yaml:"max_buffered_millis"`
		CompleteGapMillis int64         `yaml:"complete_gap_millis"`
		MaxSegmentMillis  int64         `yaml:"max_segment_millis"`
		SilenceThreshold  int           `yaml:"silence_threshold"`
		QueueCapacity     int           `yaml:"queue_capacity"`
		PassPause         time.Duration `yaml:"pass_pause"`
		CyclePause        time.Duration `yaml:"cycle_pause"`
		TargetLanguages   []string      `yaml:"target_languages"`
	} `yaml:"meeting"`

	Recognizer struct {
		Provider     string `yaml:"provider"` // mock, google
		LanguageCode string `yaml:"language_code"`
	} `yaml:"recognizer"`

	Translator struct {
		Provider     string `yaml:"provider"` // mock, deepl
		DeepLAuthKey string `yaml:"deepl_auth_key"`
		DeepLFree    bool   `yaml:"deepl_free"`
	} `yaml:"translator"`

	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		TopicPartial     string   `yaml:"topic_partial"`
		TopicFinal       string   `yaml:"topic_final"`
		TopicTranslation string   `yaml:"topic_translation"`
		Principal        string   `yaml:"principal"`
	} `yaml:"kafka"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Observability struct {
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"` // json, console
	} `yaml:"observability"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	cfg := &Config{}

	cfg.Service.Name = "meetscript"
	cfg.Service.HTTPAddr = ":8090"
	cfg.Service.MetricsAddr = ":9095"

	cfg.Auth.Secret = "SECRET_KEY"
	cfg.Auth.TokenTTL = 30 * time.Minute

	cfg.Audio.SampleRate = 16000

	cfg.Meeting.GapFillMaxMillis = 2000
	cfg.Meeting.MaxBufferedMillis = 20000
	cfg.Meeting.CompleteGapMillis = 1000
	cfg.Meeting.MaxSegmentMillis = 10000
	cfg.Meeting.SilenceThreshold = 4
	cfg.Meeting.QueueCapacity = 256
	cfg.Meeting.PassPause = time.Second
	cfg.Meeting.CyclePause = 3 * time.Second
	cfg.Meeting.TargetLanguages = []string{"en", "ja"}

	cfg.Recognizer.Provider = "mock"
	cfg.Recognizer.LanguageCode = "en-US"

	cfg.Translator.Provider = "mock"

	cfg.Kafka.TopicPartial = "meetscript.transcript.partial"
	cfg.Kafka.TopicFinal = "meetscript.transcript.final"
	cfg.Kafka.TopicTranslation = "meetscript.translation"
	cfg.Kafka.Principal = "svc-meetscript"

	cfg.Redis.Addr = "localhost:6379"

	cfg.Observability.LogLevel = "info"
	cfg.Observability.LogFormat = "json"

	return cfg
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Audio.SampleRate < 8000 {
		return nil, fmt.Errorf("sample rate %d too low", cfg.Audio.SampleRate)
	}
	if cfg.Meeting.SilenceThreshold < 1 {
		return nil, fmt.Errorf("silence threshold must be at least 1")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Service.HTTPAddr = envOrDefault("HTTP_ADDR", c.Service.HTTPAddr)
	c.Service.MetricsAddr = envOrDefault("METRICS_ADDR", c.Service.MetricsAddr)

	c.Auth.Secret = envOrDefault("SECRET_KEY", c.Auth.Secret)
	c.Auth.TokenTTL = envDuration("TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.IssueDevToken = envBool("ISSUE_DEV_TOKEN", c.Auth.IssueDevToken)

	c.Audio.SampleRate = envInt("AUDIO_SAMPLE_RATE", c.Audio.SampleRate)

	c.Meeting.GapFillMaxMillis = envInt64("GAP_FILL_MAX_MILLIS", c.Meeting.GapFillMaxMillis)
	c.Meeting.MaxBufferedMillis = envInt64("MAX_BUFFERED_MILLIS", c.Meeting.MaxBufferedMillis)
	c.Meeting.CompleteGapMillis = envInt64("COMPLETE_GAP_MILLIS", c.Meeting.CompleteGapMillis)
	c.Meeting.MaxSegmentMillis = envInt64("MAX_SEGMENT_MILLIS", c.Meeting.MaxSegmentMillis)
	c.Meeting.SilenceThreshold = envInt("SILENCE_THRESHOLD", c.Meeting.SilenceThreshold)
	c.Meeting.QueueCapacity = envInt("QUEUE_CAPACITY", c.Meeting.QueueCapacity)
	c.Meeting.PassPause = envDuration("PASS_PAUSE", c.Meeting.PassPause)
	c.Meeting.CyclePause = envDuration("CYCLE_PAUSE", c.Meeting.CyclePause)
	c.Meeting.TargetLanguages = envList("TARGET_LANGUAGES", c.Meeting.TargetLanguages)

	c.Recognizer.Provider = envOrDefault("RECOGNIZER_PROVIDER", c.Recognizer.Provider)
	c.Recognizer.LanguageCode = envOrDefault("RECOGNIZER_LANGUAGE_CODE", c.Recognizer.LanguageCode)

	c.Translator.Provider = envOrDefault("TRANSLATOR_PROVIDER", c.Translator.Provider)
	c.Translator.DeepLAuthKey = envOrDefault("DEEPL_AUTH_KEY", c.Translator.DeepLAuthKey)
	c.Translator.DeepLFree = envBool("DEEPL_FREE", c.Translator.DeepLFree)

	c.Kafka.Enabled = envBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = envList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicPartial = envOrDefault("KAFKA_TOPIC_PARTIAL", c.Kafka.TopicPartial)
	c.Kafka.TopicFinal = envOrDefault("KAFKA_TOPIC_FINAL", c.Kafka.TopicFinal)
	c.Kafka.TopicTranslation = envOrDefault("KAFKA_TOPIC_TRANSLATION", c.Kafka.TopicTranslation)
	c.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", c.Kafka.Principal)

	c.Redis.Enabled = envBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = envOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOrDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envInt("REDIS_DB", c.Redis.DB)

	c.Observability.LogLevel = envOrDefault("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
