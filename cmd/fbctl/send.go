package main

import (
	"github.com/spf13/cobra"

	"github.com/firebase/firebase-admin-go/messaging"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var (
		token  string
		topic  string
		title  string
		body   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a Cloud Messaging notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			client, err := a.Messaging()
			if err != nil {
				return err
			}

			msg := &messaging.Message{
				Token: token,
				Topic: topic,
				Notification: &messaging.Notification{
					Title: title,
					Body:  body,
				},
			}
			send := client.Send
			if dryRun {
				send = client.SendDryRun
			}
			name, err := send(cmd.Context(), msg)
			if err != nil {
				return err
			}
			cmd.Println(name)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "target registration token")
	cmd.Flags().StringVar(&topic, "topic", "", "target topic name")
	cmd.Flags().StringVar(&title, "title", "", "notification title")
	cmd.Flags().StringVar(&body, "body", "", "notification body")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the message without delivering it")
	return cmd
}
