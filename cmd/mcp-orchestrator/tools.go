package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newToolsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the routable tools and the backend serving each",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			reg, rt, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer reg.Shutdown()

			routes := rt.Routes()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOOL\tBACKEND\tDESCRIPTION")
			for _, s := range rt.ExportedSchemaSet() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, routes[s.Name], firstLine(s.Description))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			for _, c := range rt.Collisions() {
				fmt.Fprintf(cmd.OutOrStdout(), "note: %s is served by %s, shadowing %s\n",
					c.Tool, c.Winner, strings.Join(c.Shadowed, ", "))
			}
			return nil
		},
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
