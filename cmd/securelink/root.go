package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"securelink/internal/config"
	"securelink/internal/logger"
)

var (
	cfgFile string
	appCfg  *config.Config
	log     logger.Logger
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "securelink",
	Short: "将渲染文档中的私有对象存储链接重写为鉴权 URL",
	Long: `securelink 通过 DevTools 协议附加到文档渲染环境，
在取用前把指向私有对象存储的链接重写为预签名 URL 或携带静态鉴权参数的 URL。
文档本身只保留明文路径，带凭证的 URL 按需生成，从不落盘。`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认 ./securelink.yaml)")
	rootCmd.PersistentFlags().String("devtools", "", "DevTools 端点地址")
	rootCmd.PersistentFlags().String("db", "", "sqlite 数据库路径")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "", "日志级别: debug/info/warn/error")

	_ = viper.BindPFlag("devtools.url", rootCmd.PersistentFlags().Lookup("devtools"))
	_ = viper.BindPFlag("sqlite.dsn", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("loglevel"))
}

// initConfig 读取配置文件与环境变量，合并到默认配置上
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("securelink")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("SECURELINK")
	viper.AutomaticEnv()

	appCfg = config.NewConfig()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "读取配置文件失败:", err)
			os.Exit(1)
		}
	}
	if err := viper.Unmarshal(appCfg); err != nil {
		fmt.Fprintln(os.Stderr, "解析配置失败:", err)
		os.Exit(1)
	}
	// 未显式传入的标志绑定为空字符串，回填默认值
	def := config.NewConfig()
	if appCfg.DevTools.URL == "" {
		appCfg.DevTools.URL = def.DevTools.URL
	}
	if appCfg.Sqlite.Dsn == "" {
		appCfg.Sqlite.Dsn = def.Sqlite.Dsn
	}
	if appCfg.Log.Level == "" {
		appCfg.Log.Level = def.Log.Level
	}

	log = logger.New(logger.Options{
		Level:   appCfg.Log.Level,
		Writers: appCfg.Log.Writer,
		File:    appCfg.Log.File,
	})
}
