package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lpMinter/internal/dex"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "lpmint",
		Short:        "Uniswap V3 position minter",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Pull deposits into custody and mint a position around the current tick",
		RunE:  runMint,
	}

	mintCmd.Flags().String("rpc", "", "RPC URL")
	mintCmd.Flags().String("pool", "", "V3 pool address")
	mintCmd.Flags().String("amount0", "", "token0 deposit in raw units")
	mintCmd.Flags().String("amount1", "", "token1 deposit in raw units")
	mintCmd.Flags().Int32("width", 0, "total range width in ticks")
	mintCmd.Flags().String("caller", "", "depositor and position recipient (defaults to the custody account)")
	mintCmd.Flags().String("position-manager", dex.DefaultPositionManager, "NonfungiblePositionManager address")
	mintCmd.Flags().String("private-key", "", "custody account private key (hex)")
	mintCmd.Flags().String("mnemonic", "", "custody account mnemonic")
	mintCmd.Flags().String("derivation-path", "m/44'/60'/0'/0/0", "HD derivation path used with --mnemonic")
	mintCmd.Flags().String("out", "./data/positions.jsonl", "output JSONL path for mint records")
	mintCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for the positions table")
	mintCmd.Flags().Bool("align-ticks", false, "round ticks outward to the pool tick spacing")
	mintCmd.Flags().Bool("dry-run", false, "print the planned mint without sending transactions")
	mintCmd.Flags().Duration("receipt-timeout", 2*time.Minute, "maximum wait for each transaction receipt")
	mintCmd.Flags().Duration("receipt-poll", time.Second, "initial receipt polling interval")
	mintCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	mintCmd.Flags().String("log-file", "", "optional rotating log file")

	root.AddCommand(mintCmd)

	rangeCmd := &cobra.Command{
		Use:   "range",
		Short: "Compute the asymmetric tick offsets for a deposit",
		RunE:  runRange,
	}

	rangeCmd.Flags().String("amount0", "", "token0 amount")
	rangeCmd.Flags().Uint8("decimals0", 18, "token0 decimals")
	rangeCmd.Flags().String("amount1", "", "token1 amount")
	rangeCmd.Flags().Uint8("decimals1", 18, "token1 decimals")
	rangeCmd.Flags().Int32("width", 0, "total range width in ticks")
	rangeCmd.Flags().Bool("human", false, "amounts are decimal token quantities instead of raw units")
	rangeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(rangeCmd)

	return root
}
