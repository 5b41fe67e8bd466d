package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func scheduleCmd() *cobra.Command {
	var flow string
	var delay, interval int64
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "set_fetch_period: reconfigure a flow's delay/interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]int64{"delay_seconds": delay, "interval_seconds": interval}
			if err := clientFromCmd(cmd).call("POST", "/schedule/"+flow, req, nil); err != nil {
				return err
			}
			fmt.Println("schedule updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&flow, "flow", "root", "flow name (root|events)")
	cmd.Flags().Int64Var(&delay, "delay-seconds", 5, "initial delay before the first tick")
	cmd.Flags().Int64Var(&interval, "interval-seconds", 5, "steady-state tick interval")
	return cmd
}

func tunablesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tunables", Short: "set_confirm_block / set_rpc_number"}
	cmd.AddCommand(tunablesConfirmBlockCmd())
	cmd.AddCommand(tunablesRPCNumberCmd())
	return cmd
}

func tunablesConfirmBlockCmd() *cobra.Command {
	var n uint64
	cmd := &cobra.Command{
		Use:   "confirm-block",
		Short: "set_confirm_block",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFromCmd(cmd).call("POST", "/tunables/confirm-block", map[string]uint64{"n": n}, nil); err != nil {
				return err
			}
			fmt.Println("confirm_block updated")
			return nil
		},
	}
	cmd.Flags().Uint64Var(&n, "n", 0, "confirmation depth")
	return cmd
}

func tunablesRPCNumberCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "rpc-number",
		Short: "set_rpc_number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFromCmd(cmd).call("POST", "/tunables/rpc-number", map[string]int{"n": n}, nil); err != nil {
				return err
			}
			fmt.Println("rpc_number updated")
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 0, "number of RPC endpoints queried per round")
	return cmd
}
