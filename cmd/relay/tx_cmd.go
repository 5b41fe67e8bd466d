package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tx", Short: "per-chain RPC point reads and raw submission"}
	cmd.AddCommand(txCountCmd())
	cmd.AddCommand(gasPriceCmd())
	cmd.AddCommand(sendRawCmd())
	cmd.AddCommand(latestRootCmd())
	return cmd
}

func txCountCmd() *cobra.Command {
	var chainID uint32
	var addr string
	cmd := &cobra.Command{
		Use:   "count",
		Short: "get_tx_count",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/chains/" + strconv.FormatUint(uint64(chainID), 10) + "/tx-count/" + addr
			var out map[string]uint64
			if err := clientFromCmd(cmd).call("GET", path, nil, &out); err != nil {
				return err
			}
			fmt.Printf("tx_count: %d\n", out["tx_count"])
			return nil
		},
	}
	cmd.Flags().Uint32Var(&chainID, "chain-id", 0, "chain id")
	cmd.Flags().StringVar(&addr, "addr", "", "hex address")
	return cmd
}

func gasPriceCmd() *cobra.Command {
	var chainID uint32
	cmd := &cobra.Command{
		Use:   "gas-price",
		Short: "get_gas_price",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/chains/" + strconv.FormatUint(uint64(chainID), 10) + "/gas-price"
			var out map[string]string
			if err := clientFromCmd(cmd).call("GET", path, nil, &out); err != nil {
				return err
			}
			fmt.Printf("gas_price: %s\n", out["gas_price"])
			return nil
		},
	}
	cmd.Flags().Uint32Var(&chainID, "chain-id", 0, "chain id")
	return cmd
}

func sendRawCmd() *cobra.Command {
	var chainID uint32
	var rawTx string
	cmd := &cobra.Command{
		Use:   "send-raw",
		Short: "send_raw_tx",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/chains/" + strconv.FormatUint(uint64(chainID), 10) + "/raw-tx"
			var out map[string]string
			if err := clientFromCmd(cmd).call("POST", path, map[string]string{"raw_tx": rawTx}, &out); err != nil {
				return err
			}
			fmt.Printf("tx_hash: %s\n", out["tx_hash"])
			return nil
		},
	}
	cmd.Flags().Uint32Var(&chainID, "chain-id", 0, "destination chain id")
	cmd.Flags().StringVar(&rawTx, "raw-tx", "", "hex-encoded signed raw transaction")
	return cmd
}

func latestRootCmd() *cobra.Command {
	var chainID uint32
	cmd := &cobra.Command{
		Use:   "latest-root",
		Short: "get_latest_root",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/chains/" + strconv.FormatUint(uint64(chainID), 10) + "/latest-root"
			var out map[string]string
			if err := clientFromCmd(cmd).call("GET", path, nil, &out); err != nil {
				return err
			}
			fmt.Printf("root: %s\n", out["root"])
			return nil
		},
	}
	cmd.Flags().Uint32Var(&chainID, "chain-id", 0, "source chain id")
	return cmd
}
