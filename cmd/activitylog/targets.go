package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	adapter "activitylog/internal/adapter/cdp"
	"activitylog/internal/cdp"
)

func getCmdTargets(gs *globalState) *cobra.Command {
	var devtools string
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "列出可附加的调试目标",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if devtools == "" {
				devtools = gs.cfg.Stream.DevToolsURL
			}
			mgr := cdp.New(devtools, nil, gs.log)
			targets, err := mgr.ListTargets(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(gs.stdOut, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tEXTENSION\tURL")
			for _, t := range targets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Type, adapter.ExtensionIDFromTarget(t), t.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&devtools, "devtools", "", "DevTools 地址，默认使用配置 stream.devToolsURL")
	return cmd
}
