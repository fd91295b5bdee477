package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpMinter/internal/config"
	"lpMinter/internal/tickrange"
	"lpMinter/internal/units"
)

type rangeOutput struct {
	Width       int32  `json:"width"`
	Amount0Raw  string `json:"amount0_raw"`
	Amount1Raw  string `json:"amount1_raw"`
	LowerOffset int32  `json:"lower_offset"`
	UpperOffset int32  `json:"upper_offset"`
}

func runRange(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRange(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, "")
	if err != nil {
		return err
	}
	defer logger.Sync()

	amount0, err := parseAmount(cfg.Amount0, cfg.Decimals0, cfg.Human)
	if err != nil {
		return fmt.Errorf("amount0: %w", err)
	}
	amount1, err := parseAmount(cfg.Amount1, cfg.Decimals1, cfg.Human)
	if err != nil {
		return fmt.Errorf("amount1: %w", err)
	}

	rng, err := tickrange.Compute(cfg.Width, amount0, cfg.Decimals0, amount1, cfg.Decimals1)
	if err != nil {
		return err
	}
	logger.Debug("range computed",
		zap.Int32("width", cfg.Width),
		zap.Int32("lower", rng.Lower),
		zap.Int32("upper", rng.Upper),
	)

	return printJSON(rangeOutput{
		Width:       cfg.Width,
		Amount0Raw:  amount0.String(),
		Amount1Raw:  amount1.String(),
		LowerOffset: rng.Lower,
		UpperOffset: rng.Upper,
	})
}

func parseAmount(amount string, decimals uint8, human bool) (*big.Int, error) {
	if human {
		return units.ToRaw(amount, decimals)
	}
	return units.ParseRaw(amount)
}

func printJSON(value interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
