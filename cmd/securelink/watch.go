package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"securelink/pkg/api"
	"securelink/pkg/model"
)

// watchCmd 附加目标并持续拦截，直到收到中断信号
var watchCmd = &cobra.Command{
	Use:   "watch [targetID]",
	Short: "附加目标并持续重写范围内的链接",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var targetID model.TargetID
		if len(args) > 0 {
			targetID = model.TargetID(args[0])
		}

		svc, err := api.NewService(appCfg, log)
		if err != nil {
			return err
		}
		defer svc.Close()

		sc := model.SessionConfig{}
		// 显式传入的端点优先于记住的端点
		if cmd.Flags().Changed("devtools") {
			sc.DevToolsURL = appCfg.DevTools.URL
		}
		id, err := svc.StartSession(sc)
		if err != nil {
			return err
		}
		attached, err := svc.AttachTarget(id, targetID)
		if err != nil {
			return err
		}
		if err := svc.EnableInterception(id); err != nil {
			return err
		}

		// 初次渲染后的全量扫描
		count, err := svc.SecureAll(cmd.Context(), id, attached)
		if err != nil {
			log.Warn("初始扫描未完成", "error", err)
		} else {
			fmt.Printf("初始扫描完成，新处理 %d 处\n", count)
		}

		events, err := svc.SubscribeEvents(id)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		for {
			select {
			case <-ctx.Done():
				stats, _ := svc.Stats(id)
				fmt.Printf("拦截 %d 次，命中 %d 次，重写 %d 次，失败 %d 次\n",
					stats.Total, stats.Matched, stats.Rewritten, stats.Failed)
				return svc.DisableInterception(id)
			case evt := <-events:
				switch evt.Type {
				case model.EventRewritten:
					fmt.Printf("[%s] %s -> 已安全化\n", evt.Source, evt.URL)
				case model.EventDegraded:
					fmt.Printf("[%s] %s 重写失败，已回退: %s\n", evt.Source, evt.URL, evt.Error)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
