package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func chainCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "chain", Short: "manage configured source/destination chains"}
	cmd.AddCommand(chainAddCmd())
	cmd.AddCommand(chainUpdateCmd())
	cmd.AddCommand(chainDeleteCmd())
	cmd.AddCommand(chainListCmd())
	return cmd
}

type chainAddRequest struct {
	ChainID         uint32   `json:"chain_id"`
	RPCURLs         []string `json:"rpc_urls"`
	GatewayAddr     string   `json:"gateway_addr"`
	StartBlock      uint64   `json:"start_block"`
	BatchSize       uint64   `json:"batch_size"`
	ConfirmationDep uint64   `json:"confirmation_depth"`
}

func chainAddCmd() *cobra.Command {
	var req chainAddRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "add a chain (add_chain)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := clientFromCmd(cmd).call("POST", "/chains/", req, &out); err != nil {
				return err
			}
			fmt.Printf("chain added: %+v\n", out)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&req.ChainID, "chain-id", 0, "chain id")
	cmd.Flags().StringSliceVar(&req.RPCURLs, "rpc-urls", nil, "comma-separated RPC URLs")
	cmd.Flags().StringVar(&req.GatewayAddr, "gateway-addr", "", "hex gateway contract address")
	cmd.Flags().Uint64Var(&req.StartBlock, "start-block", 0, "deployment/start block")
	cmd.Flags().Uint64Var(&req.BatchSize, "batch-size", 0, "scan batch size (0 = server default)")
	cmd.Flags().Uint64Var(&req.ConfirmationDep, "confirmation-depth", 0, "confirmation depth (0 = server default)")
	return cmd
}

func chainUpdateCmd() *cobra.Command {
	var req chainAddRequest
	cmd := &cobra.Command{
		Use:   "update",
		Short: "update a chain's RPC URLs / gateway / batch settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/chains/" + strconv.FormatUint(uint64(req.ChainID), 10) + "/"
			var out map[string]any
			if err := clientFromCmd(cmd).call("PUT", path, req, &out); err != nil {
				return err
			}
			fmt.Printf("chain updated: %+v\n", out)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&req.ChainID, "chain-id", 0, "chain id")
	cmd.Flags().StringSliceVar(&req.RPCURLs, "rpc-urls", nil, "comma-separated RPC URLs")
	cmd.Flags().StringVar(&req.GatewayAddr, "gateway-addr", "", "hex gateway contract address")
	cmd.Flags().Uint64Var(&req.BatchSize, "batch-size", 0, "scan batch size")
	cmd.Flags().Uint64Var(&req.ConfirmationDep, "confirmation-depth", 0, "confirmation depth")
	return cmd
}

func chainDeleteCmd() *cobra.Command {
	var chainID uint32
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "delete a chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/chains/" + strconv.FormatUint(uint64(chainID), 10) + "/"
			if err := clientFromCmd(cmd).call("DELETE", path, nil, nil); err != nil {
				return err
			}
			fmt.Println("chain deleted")
			return nil
		},
	}
	cmd.Flags().Uint32Var(&chainID, "chain-id", 0, "chain id")
	return cmd
}

func chainListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list configured chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []map[string]any
			if err := clientFromCmd(cmd).call("GET", "/chains/", nil, &out); err != nil {
				return err
			}
			for _, c := range out {
				fmt.Printf("%+v\n", c)
			}
			return nil
		},
	}
}
