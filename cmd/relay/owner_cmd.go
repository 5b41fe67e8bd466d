package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ownerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "owner", Short: "manage admin ACL owners"}
	cmd.AddCommand(ownerAddCmd())
	cmd.AddCommand(ownerRemoveCmd())
	return cmd
}

func ownerAddCmd() *cobra.Command {
	var pid string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "add an owner principal (add_owner)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFromCmd(cmd).call("POST", "/owners/", map[string]string{"pid": pid}, nil); err != nil {
				return err
			}
			fmt.Println("owner added")
			return nil
		},
	}
	cmd.Flags().StringVar(&pid, "pid", "", "owner principal to add")
	return cmd
}

func ownerRemoveCmd() *cobra.Command {
	var pid string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "remove an owner principal (remove_owner)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFromCmd(cmd).call("DELETE", "/owners/"+pid, nil, nil); err != nil {
				return err
			}
			fmt.Println("owner removed")
			return nil
		},
	}
	cmd.Flags().StringVar(&pid, "pid", "", "owner principal to remove")
	return cmd
}
