package model

import (
	"errors"
	"fmt"
	"strings"
)

// RewriteMode 重写模式
type RewriteMode string

const (
	// ModeParameter 在 URL 上附加静态鉴权查询参数
	ModeParameter RewriteMode = "parameter"
	// ModeSigned 通过对象存储签名服务生成限时预签名 URL
	ModeSigned RewriteMode = "signed"
)

// ErrConfigIncomplete 当前模式缺少必填字段
var ErrConfigIncomplete = errors.New("重写配置不完整")

// RewriteConfig 重写配置快照，拦截期间只读
type RewriteConfig struct {
	MatchPattern string      `json:"matchPattern"`
	Mode         RewriteMode `json:"mode"`

	// parameter 模式
	ParamKey   string `json:"paramKey"`
	ParamValue string `json:"paramValue"`

	// signed 模式凭证
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	Bucket          string `json:"bucket"`
	ExpirySeconds   int    `json:"expirySeconds"`
}

// DefaultRewriteConfig 返回文档化的默认配置
func DefaultRewriteConfig() RewriteConfig {
	return RewriteConfig{
		Mode:          ModeParameter,
		ParamKey:      "key",
		ExpirySeconds: 3600,
	}
}

// Validate 校验当前模式的必填字段
func (c RewriteConfig) Validate() error {
	switch c.Mode {
	case ModeParameter:
		if c.ParamKey == "" || c.ParamValue == "" {
			return fmt.Errorf("%w: parameter 模式需要参数名和参数值", ErrConfigIncomplete)
		}
	case ModeSigned:
		var missing []string
		if c.AccessKeyID == "" {
			missing = append(missing, "accessKeyId")
		}
		if c.SecretAccessKey == "" {
			missing = append(missing, "secretAccessKey")
		}
		if c.Region == "" {
			missing = append(missing, "region")
		}
		if c.Bucket == "" {
			missing = append(missing, "bucket")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: signed 模式缺少 %s", ErrConfigIncomplete, strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("%w: 未知模式 %q", ErrConfigIncomplete, string(c.Mode))
	}
	return nil
}
