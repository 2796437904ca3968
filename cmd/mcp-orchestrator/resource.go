package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResourceCmd(cfgPath *string) *cobra.Command {
	var backendID, uri string

	cmd := &cobra.Command{
		Use:   "resource",
		Short: "List a backend's resources, or read one with --uri",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			reg, _, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer reg.Shutdown()

			out := cmd.OutOrStdout()
			if uri == "" {
				resources, err := reg.ListResources(ctx, backendID)
				if err != nil {
					return err
				}
				for _, r := range resources {
					fmt.Fprintf(out, "%s\t%s\t%s\n", r.URI, r.Name, r.MIMEType)
				}
				return nil
			}

			contents, err := reg.ReadResource(ctx, backendID, uri)
			if err != nil {
				return err
			}
			for _, c := range contents {
				if c.Text != "" {
					fmt.Fprintln(out, c.Text)
					continue
				}
				fmt.Fprintf(out, "[%d bytes of %s]\n", len(c.Blob), c.MIMEType)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&backendID, "backend", "b", "", "backend id")
	cmd.Flags().StringVar(&uri, "uri", "", "resource URI to read")
	_ = cmd.MarkFlagRequired("backend")
	return cmd
}
