package config

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	DevTools DevToolsConfig `yaml:"devtools" mapstructure:"devtools"`
	Sqlite   SqliteConfig   `yaml:"sqlite" mapstructure:"sqlite"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`

	// ProcessTimeoutMS 单次拦截处理超时，超时降级放行
	ProcessTimeoutMS int `yaml:"processTimeoutMS" mapstructure:"processTimeoutMS"`
}

// DevToolsConfig DevTools 端点配置
type DevToolsConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// SqliteConfig 数据库配置
type SqliteConfig struct {
	Dsn    string `yaml:"dsn" mapstructure:"dsn"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string   `yaml:"level" mapstructure:"level"`
	Writer []string `yaml:"writer" mapstructure:"writer"`
	File   string   `yaml:"file" mapstructure:"file"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Version: "1.0.0",
		DevTools: DevToolsConfig{
			URL: "http://127.0.0.1:9222",
		},
		Sqlite: SqliteConfig{
			Dsn:    "securelink.sqlite3",
			Prefix: "securelink_",
		},
		Log: LogConfig{
			Level:  "info",
			Writer: []string{"console"},
			File:   "securelink.log",
		},
		ProcessTimeoutMS: 3000,
	}
}
