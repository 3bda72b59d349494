package config

import (
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const DefaultFile = "config.env"

const (
	KeyApiToken     = "API.TOKEN"
	KeyApiUrl       = "API.URL"
	KeyDatabasePath = "DATABASE.PATH"
	KeyStationsFile = "STATIONS.FILE"
	KeyLogLevel     = "LOG.LEVEL"
	KeyLogFormat    = "LOG.FORMAT"
	KeyMqttBroker   = "MQTT.BROKER"
	KeyMqttTopic    = "MQTT.TOPIC"
	KeyMqttClientId = "MQTT.CLIENT_ID"
)

type Config struct {
	ApiToken     string
	ApiUrl       string
	DatabasePath string
	StationsFile string

	LogLevel  slog.Level
	LogFormat string

	// MqttBroker is optional; prices are only published when it is set.
	MqttBroker   string
	MqttTopic    string
	MqttClientId string
}

// Load reads the key/value file at path and applies environment overrides.
// An override uses the key with dots replaced by underscores, e.g. API_TOKEN.
// A missing file is not an error as long as the environment supplies the
// required keys.
func Load(path string) (Config, error) {
	values := map[string]string{}
	if path != "" {
		fileValues, err := godotenv.Read(path)
		switch {
		case err == nil:
			values = fileValues
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	lookup := func(key, defaultValue string) string {
		if v, ok := os.LookupEnv(EnvName(key)); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if v := strings.TrimSpace(values[key]); v != "" {
			return v
		}
		return defaultValue
	}

	cfg := Config{
		ApiToken:     lookup(KeyApiToken, ""),
		ApiUrl:       lookup(KeyApiUrl, ""),
		DatabasePath: lookup(KeyDatabasePath, ""),
		StationsFile: lookup(KeyStationsFile, "gas_station_list.txt"),
		LogFormat:    strings.ToLower(lookup(KeyLogFormat, "text")),
		MqttBroker:   lookup(KeyMqttBroker, ""),
		MqttTopic:    lookup(KeyMqttTopic, "gasprices"),
		MqttClientId: lookup(KeyMqttClientId, "gas-prices-ingest"),
	}

	var missing []string
	for key, value := range map[string]string{
		KeyApiToken:     cfg.ApiToken,
		KeyApiUrl:       cfg.ApiUrl,
		KeyDatabasePath: cfg.DatabasePath,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return Config{}, errors.Newf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	level, err := parseLogLevel(lookup(KeyLogLevel, "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return Config{}, errors.Newf("invalid %s %q (allowed: text, json)", KeyLogFormat, cfg.LogFormat)
	}

	return cfg, nil
}

func EnvName(key string) string {
	return strings.ReplaceAll(key, ".", "_")
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Newf("invalid %s %q (allowed: debug, info, warn, error)", KeyLogLevel, s)
	}
}
