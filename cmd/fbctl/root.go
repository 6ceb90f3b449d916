package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/firebase/firebase-admin-go/app"
	"github.com/firebase/firebase-admin-go/credentials"
)

type rootOptions struct {
	credFile  string
	projectID string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "fbctl",
		Short:         "Administer a Firebase project from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.credFile, "credentials", "", "path to a service account JSON file")
	cmd.PersistentFlags().StringVar(&opts.projectID, "project", "", "project id (defaults to the credential's project)")

	cmd.AddCommand(newUserCmd(opts))
	cmd.AddCommand(newSendCmd(opts))
	return cmd
}

// newApp initializes an App from the root flags. Without --credentials the
// application default credentials are used.
func (o *rootOptions) newApp(ctx context.Context) (*app.App, error) {
	conf := &app.Conf{ProjectID: o.projectID}
	if o.credFile != "" {
		f, err := os.Open(o.credFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		cred, err := credentials.NewCert(f)
		if err != nil {
			return nil, err
		}
		conf.Cred = cred
	}
	return app.New(ctx, conf)
}
