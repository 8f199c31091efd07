package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"lpdeposit/internal/model"
)

const envPrefix = "LPDEPOSIT"

// Config holds configuration for the deposit, estimate and status commands.
type Config struct {
	RPCURL            string
	Network           string
	NetworkPassphrase string
	AddressBookDir    string
	Pool              string
	AssetA            string
	AssetB            string
	Secret            string
	Initiator         string
	Shares            string
	Slippage          string
	QuoteWeight       string
	BaseFee           uint32
	TxTimeout         time.Duration
	PollInterval      time.Duration
	MaxPollAttempts   int
	PollTimeout       time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	Journal           string
	Pending           string
	PGDSN             string
	RedisURL          string
	LockTTL           time.Duration
	ContractErrorMap  map[int]model.ErrorKind
	Yes               bool
	MaxAssetA         string
	MaxAssetB         string
	MaxResourceFee    int64
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("network", "testnet")
		v.SetDefault("address-book-dir", ".")
		v.SetDefault("slippage", "1")
		v.SetDefault("quote-weight", "0.2")
		v.SetDefault("base-fee", 10000)
		v.SetDefault("tx-timeout", 30*time.Second)
		v.SetDefault("poll-interval", 6*time.Second)
		v.SetDefault("max-poll-attempts", 30)
		v.SetDefault("poll-timeout", 3*time.Minute)
		v.SetDefault("max-retries", 3)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("journal", "./data/attempts.jsonl")
		v.SetDefault("pending", "./data/pending.json")
		v.SetDefault("lock-ttl", 5*time.Minute)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return Config{}, err
	}

	errorMap, err := ParseContractErrorMap(getStringMap(v, "contract-error-map"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		Network:           v.GetString("network"),
		NetworkPassphrase: v.GetString("network-passphrase"),
		AddressBookDir:    v.GetString("address-book-dir"),
		Pool:              v.GetString("pool"),
		AssetA:            v.GetString("asset-a"),
		AssetB:            v.GetString("asset-b"),
		Secret:            v.GetString("secret"),
		Initiator:         v.GetString("initiator"),
		Shares:            v.GetString("shares"),
		Slippage:          v.GetString("slippage"),
		QuoteWeight:       v.GetString("quote-weight"),
		BaseFee:           v.GetUint32("base-fee"),
		TxTimeout:         v.GetDuration("tx-timeout"),
		PollInterval:      v.GetDuration("poll-interval"),
		MaxPollAttempts:   v.GetInt("max-poll-attempts"),
		PollTimeout:       v.GetDuration("poll-timeout"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Journal:           v.GetString("journal"),
		Pending:           v.GetString("pending"),
		PGDSN:             v.GetString("pg-dsn"),
		RedisURL:          v.GetString("redis-url"),
		LockTTL:           v.GetDuration("lock-ttl"),
		ContractErrorMap:  errorMap,
		Yes:               v.GetBool("yes"),
		MaxAssetA:         v.GetString("max-asset-a"),
		MaxAssetB:         v.GetString("max-asset-b"),
		MaxResourceFee:    v.GetInt64("max-resource-fee"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// ParseContractErrorMap converts code=kind pairs such as "13=limit_exceeded"
// into an error table.
func ParseContractErrorMap(raw map[string]string) (map[int]model.ErrorKind, error) {
	out := make(map[int]model.ErrorKind, len(raw))
	for codeText, kindText := range raw {
		code, err := strconv.Atoi(strings.TrimSpace(codeText))
		if err != nil {
			return nil, fmt.Errorf("contract-error-map: invalid code %q", codeText)
		}
		kind, ok := model.ParseErrorKind(kindText)
		if !ok {
			return nil, fmt.Errorf("contract-error-map: unknown kind %q for code %d", kindText, code)
		}
		out[code] = kind
	}
	return out, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
