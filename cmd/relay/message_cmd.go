package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type messageRequest struct {
	OriginChain    uint32 `json:"origin_chain"`
	MessageBytes   string `json:"message_bytes"`
	Proof          string `json:"proof"`
	LeafIndex      uint64 `json:"leaf_index"`
	WaitOptimistic bool   `json:"wait_optimistic"`
}

func messageCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "message", Short: "validate and dispatch relayed messages"}
	cmd.AddCommand(messageIsValidCmd())
	cmd.AddCommand(messageProcessCmd())
	return cmd
}

func bindMessageFlags(cmd *cobra.Command, req *messageRequest) {
	cmd.Flags().Uint32Var(&req.OriginChain, "origin-chain", 0, "origin chain id")
	cmd.Flags().StringVar(&req.MessageBytes, "message", "", "hex-encoded ABI-encoded message")
	cmd.Flags().StringVar(&req.Proof, "proof", "", "hex-encoded 32x32-byte Merkle proof")
	cmd.Flags().Uint64Var(&req.LeafIndex, "leaf-index", 0, "leaf index")
	cmd.Flags().BoolVar(&req.WaitOptimistic, "wait-optimistic", false, "require the optimistic verification delay to have cleared")
}

func messageIsValidCmd() *cobra.Command {
	var req messageRequest
	cmd := &cobra.Command{
		Use:   "is-valid",
		Short: "is_valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]bool
			if err := clientFromCmd(cmd).call("POST", "/messages/is-valid", req, &out); err != nil {
				return err
			}
			fmt.Printf("valid: %v\n", out["valid"])
			return nil
		},
	}
	bindMessageFlags(cmd, &req)
	return cmd
}

func messageProcessCmd() *cobra.Command {
	var req messageRequest
	cmd := &cobra.Command{
		Use:   "process",
		Short: "process_message",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFromCmd(cmd).call("POST", "/messages/process", req, nil); err != nil {
				return err
			}
			fmt.Println("message processed")
			return nil
		},
	}
	bindMessageFlags(cmd, &req)
	return cmd
}
