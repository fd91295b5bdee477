package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/pflag"
)

// RangeConfig holds configuration for the range command.
type RangeConfig struct {
	Amount0   string
	Decimals0 uint8
	Amount1   string
	Decimals1 uint8
	Width     int32
	Human     bool
	LogLevel  string
}

// LoadRange merges config file, environment variables, and flags into RangeConfig.
func LoadRange(cfgFile string, flags *pflag.FlagSet) (RangeConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"decimals0": 18,
		"decimals1": 18,
		"log-level": "info",
	})
	if err != nil {
		return RangeConfig{}, err
	}

	decimals0, decimals1 := v.GetUint("decimals0"), v.GetUint("decimals1")
	if decimals0 > math.MaxUint8 || decimals1 > math.MaxUint8 {
		return RangeConfig{}, fmt.Errorf("decimals out of range: %d, %d", decimals0, decimals1)
	}

	return RangeConfig{
		Amount0:   strings.TrimSpace(v.GetString("amount0")),
		Decimals0: uint8(decimals0),
		Amount1:   strings.TrimSpace(v.GetString("amount1")),
		Decimals1: uint8(decimals1),
		Width:     v.GetInt32("width"),
		Human:     v.GetBool("human"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}
