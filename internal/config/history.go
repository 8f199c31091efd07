package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// HistoryConfig holds configuration for the history and migrate commands.
type HistoryConfig struct {
	Journal   string
	PGDSN     string
	Initiator string
	Pool      string
	Outcome   string
	Limit     int
	Steps     int
	LogLevel  string
}

// LoadHistory merges config file, environment variables, and flags into HistoryConfig.
func LoadHistory(cfgFile string, flags *pflag.FlagSet) (HistoryConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("journal", "./data/attempts.jsonl")
		v.SetDefault("limit", 20)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return HistoryConfig{}, err
	}

	cfg := HistoryConfig{
		Journal:   v.GetString("journal"),
		PGDSN:     v.GetString("pg-dsn"),
		Initiator: v.GetString("initiator"),
		Pool:      v.GetString("pool"),
		Outcome:   v.GetString("outcome"),
		Limit:     v.GetInt("limit"),
		Steps:     v.GetInt("steps"),
		LogLevel:  v.GetString("log-level"),
	}

	return cfg, nil
}
