package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"securelink/internal/engine"
	"securelink/internal/signer"
	"securelink/pkg/api"
	"securelink/pkg/docrewrite"
	"securelink/pkg/model"
)

// secureAllCmd 对目标当前视图执行一次按需扫描
var secureAllCmd = &cobra.Command{
	Use:   "secure-all [targetID]",
	Short: "安全化当前视图中全部匹配链接",
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
		count, err := svc.SecureAll(cmd.Context(), id, attached)
		if err != nil {
			if errors.Is(err, model.ErrConfigIncomplete) {
				return fmt.Errorf("重写配置不完整，请先执行 securelink config set: %w", err)
			}
			return err
		}
		if count == 0 {
			fmt.Println("没有发现新的匹配链接")
			return nil
		}
		fmt.Printf("新处理 %d 处\n", count)
		return nil
	},
}

// secureFileCmd 对导出的静态 HTML 文件执行相同的安全化处理
var secureFileCmd = &cobra.Command{
	Use:   "secure-file <input.html>",
	Short: "安全化静态 HTML 文件中的匹配链接",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		svc, err := api.NewService(appCfg, log)
		if err != nil {
			return err
		}
		defer svc.Close()

		rc, err := svc.RewriteConfig()
		if err != nil {
			return err
		}
		eng := engine.New(rc, func(c model.RewriteConfig) (engine.Signer, error) {
			return signer.NewS3(context.Background(), c)
		}, log)

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		html, count, err := docrewrite.Rewrite(cmd.Context(), f, eng)
		if err != nil {
			return err
		}
		if output == "" {
			output = args[0]
		}
		if err := os.WriteFile(output, []byte(html), 0o644); err != nil {
			return err
		}
		fmt.Printf("新处理 %d 处，已写入 %s\n", count, output)
		return nil
	},
}

func init() {
	secureFileCmd.Flags().StringP("output", "o", "", "输出文件路径 (默认原地覆盖)")
	rootCmd.AddCommand(secureAllCmd)
	rootCmd.AddCommand(secureFileCmd)
}
