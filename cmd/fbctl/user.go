package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect and manage user accounts",
	}

	get := &cobra.Command{
		Use:   "get <uid>",
		Short: "Fetch a user record by uid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			client, err := a.Auth()
			if err != nil {
				return err
			}
			user, err := client.GetUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(user.UserRecord)
		},
	}

	del := &cobra.Command{
		Use:   "delete <uid>...",
		Short: "Delete one or more user accounts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			client, err := a.Auth()
			if err != nil {
				return err
			}
			for _, uid := range args {
				if err := client.DeleteUser(cmd.Context(), uid); err != nil {
					return err
				}
				cmd.Printf("deleted %s\n", uid)
			}
			return nil
		},
	}

	cmd.AddCommand(get, del)
	return cmd
}
