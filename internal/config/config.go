package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. LPMINT_RPC.
const EnvPrefix = "LPMINT"

// MintConfig holds configuration for the mint command.
type MintConfig struct {
	RPCURL          string
	Pool            string
	Amount0         string
	Amount1         string
	Width           int32
	Caller          string
	PositionManager string
	PrivateKey      string
	Mnemonic        string
	DerivationPath  string
	Out             string
	PGDSN           string
	AlignTicks      bool
	DryRun          bool
	ReceiptTimeout  time.Duration
	ReceiptPoll     time.Duration
	LogLevel        string
	LogFile         string
}

// LoadMint merges config file, environment variables, and flags into MintConfig.
func LoadMint(cfgFile string, flags *pflag.FlagSet) (MintConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"position-manager": "0xC36442b4a4522E871399CD717aBDD847Ab11FE88",
		"derivation-path":  "m/44'/60'/0'/0/0",
		"out":              "./data/positions.jsonl",
		"receipt-timeout":  2 * time.Minute,
		"receipt-poll":     time.Second,
		"log-level":        "info",
	})
	if err != nil {
		return MintConfig{}, err
	}

	cfg := MintConfig{
		RPCURL:          v.GetString("rpc"),
		Pool:            strings.TrimSpace(v.GetString("pool")),
		Amount0:         strings.TrimSpace(v.GetString("amount0")),
		Amount1:         strings.TrimSpace(v.GetString("amount1")),
		Width:           v.GetInt32("width"),
		Caller:          strings.TrimSpace(v.GetString("caller")),
		PositionManager: strings.TrimSpace(v.GetString("position-manager")),
		PrivateKey:      strings.TrimSpace(v.GetString("private-key")),
		Mnemonic:        strings.TrimSpace(v.GetString("mnemonic")),
		DerivationPath:  v.GetString("derivation-path"),
		Out:             v.GetString("out"),
		PGDSN:           v.GetString("pg-dsn"),
		AlignTicks:      v.GetBool("align-ticks"),
		DryRun:          v.GetBool("dry-run"),
		ReceiptTimeout:  v.GetDuration("receipt-timeout"),
		ReceiptPoll:     v.GetDuration("receipt-poll"),
		LogLevel:        v.GetString("log-level"),
		LogFile:         v.GetString("log-file"),
	}
	return cfg, nil
}

// Validate checks the settings the mint command cannot run without.
func (c MintConfig) Validate() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, errors.New("rpc is required"))
	}
	if c.Pool == "" {
		errs = append(errs, errors.New("pool is required"))
	}
	if c.Amount0 == "" || c.Amount1 == "" {
		errs = append(errs, errors.New("amount0 and amount1 are required"))
	}
	if c.Width <= 0 {
		errs = append(errs, errors.New("width must be positive"))
	}
	if c.PrivateKey != "" && c.Mnemonic != "" {
		errs = append(errs, errors.New("private-key and mnemonic are mutually exclusive"))
	}
	if c.PrivateKey == "" && c.Mnemonic == "" && !(c.DryRun && c.Caller != "") {
		errs = append(errs, errors.New("private-key or mnemonic is required"))
	}
	if c.ReceiptTimeout <= 0 || c.ReceiptPoll <= 0 {
		errs = append(errs, errors.New("receipt-timeout and receipt-poll must be positive"))
	}
	return errors.Join(errs...)
}

func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
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
