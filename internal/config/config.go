package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Oracle       string
	Dex          string
	BaseCurrency string
	Deployer     string
	Journal      string
	LockTimeout  time.Duration
	PGDSN        string
	RPCURL       string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RADHEDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("deployer", DefaultDeployer)
	v.SetDefault("journal", "./data/pools.jsonl")
	v.SetDefault("lock-timeout", 10*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var addrs [4]string
	for i, key := range []string{"oracle", "dex", "base-currency", "deployer"} {
		addr, err := getAddressString(v, key)
		if err != nil {
			return Config{}, err
		}
		addrs[i] = addr
	}

	cfg := Config{
		Oracle:       addrs[0],
		Dex:          addrs[1],
		BaseCurrency: addrs[2],
		Deployer:     addrs[3],
		Journal:      v.GetString("journal"),
		LockTimeout:  v.GetDuration("lock-timeout"),
		PGDSN:        v.GetString("pg-dsn"),
		RPCURL:       v.GetString("rpc"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

// getAddressString reads a hex address. YAML decodes an unquoted 0x... value
// as a number, so anything but a string is rejected.
func getAddressString(v *viper.Viper, key string) (string, error) {
	switch typed := v.Get(key).(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(typed), nil
	default:
		return "", fmt.Errorf("%s: expected a hex address string, got %T %v; quote the address in the config file", key, typed, typed)
	}
}
