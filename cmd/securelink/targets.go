package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"securelink/internal/cdp"
)

// targetsCmd 列出可附加的渲染目标
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "列出 DevTools 端点下可附加的目标",
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := cdp.ListTargets(context.Background(), appCfg.DevTools.URL)
		if err != nil {
			return err
		}
		for _, t := range targets {
			fmt.Printf("%s\t%s\t%s\t%s\n", t.ID, t.Type, t.Title, t.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}
