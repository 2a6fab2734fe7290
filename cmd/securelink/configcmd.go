package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"securelink/pkg/api"
	"securelink/pkg/model"
)

// configCmd 重写配置管理
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "管理重写配置",
}

// configShowCmd 展示当前持久化的重写配置
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "展示当前重写配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := api.NewService(appCfg, log)
		if err != nil {
			return err
		}
		defer svc.Close()

		rc, err := svc.RewriteConfig()
		if err != nil {
			return err
		}
		fmt.Printf("匹配模式:   %s\n", rc.MatchPattern)
		fmt.Printf("重写模式:   %s\n", rc.Mode)
		fmt.Printf("参数名:     %s\n", rc.ParamKey)
		fmt.Printf("存储桶:     %s\n", rc.Bucket)
		fmt.Printf("区域:       %s\n", rc.Region)
		fmt.Printf("端点:       %s\n", rc.Endpoint)
		fmt.Printf("有效期(秒): %d\n", rc.ExpirySeconds)
		return nil
	},
}

// configSetCmd 更新重写配置，值变更对下一次拦截生效
var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "更新重写配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := api.NewService(appCfg, log)
		if err != nil {
			return err
		}
		defer svc.Close()

		rc, err := svc.RewriteConfig()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("pattern") {
			rc.MatchPattern, _ = flags.GetString("pattern")
		}
		if flags.Changed("mode") {
			mode, _ := flags.GetString("mode")
			rc.Mode = model.RewriteMode(mode)
		}
		if flags.Changed("param-key") {
			rc.ParamKey, _ = flags.GetString("param-key")
		}
		if flags.Changed("param-value") {
			rc.ParamValue, _ = flags.GetString("param-value")
		}
		if flags.Changed("access-key") {
			rc.AccessKeyID, _ = flags.GetString("access-key")
		}
		if flags.Changed("secret-key") {
			rc.SecretAccessKey, _ = flags.GetString("secret-key")
		}
		if flags.Changed("region") {
			rc.Region, _ = flags.GetString("region")
		}
		if flags.Changed("endpoint") {
			rc.Endpoint, _ = flags.GetString("endpoint")
		}
		if flags.Changed("bucket") {
			rc.Bucket, _ = flags.GetString("bucket")
		}
		if flags.Changed("expiry") {
			rc.ExpirySeconds, _ = flags.GetInt("expiry")
		}

		if err := svc.UpdateRewriteConfig(rc); err != nil {
			return err
		}
		fmt.Println("重写配置已保存")
		if err := rc.Validate(); err != nil {
			fmt.Println("提示: 配置尚不完整，重写时将回退原始 URL:", err)
		}
		return nil
	},
}

func init() {
	f := configSetCmd.Flags()
	f.String("pattern", "", "匹配模式 (URL 前缀)")
	f.String("mode", "", "重写模式: parameter/signed")
	f.String("param-key", "", "鉴权参数名")
	f.String("param-value", "", "鉴权参数值")
	f.String("access-key", "", "访问密钥ID")
	f.String("secret-key", "", "访问密钥")
	f.String("region", "", "存储区域")
	f.String("endpoint", "", "自定义端点 (兼容 MinIO)")
	f.String("bucket", "", "存储桶")
	f.Int("expiry", 0, "预签名有效期(秒)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
