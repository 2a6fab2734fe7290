package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRewriteConfig(t *testing.T) {
	cfg := DefaultRewriteConfig()
	assert.Equal(t, ModeParameter, cfg.Mode)
	assert.Equal(t, "key", cfg.ParamKey)
	assert.Empty(t, cfg.MatchPattern)
	assert.Equal(t, 3600, cfg.ExpirySeconds)
}

func TestValidateParameterMode(t *testing.T) {
	cfg := DefaultRewriteConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrConfigIncomplete, "缺少参数值")

	cfg.ParamValue = "abc123"
	assert.NoError(t, cfg.Validate())
}

func TestValidateSignedMode(t *testing.T) {
	cfg := RewriteConfig{
		Mode:        ModeSigned,
		AccessKeyID: "AKIA_TEST",
		Region:      "us-east-1",
		Bucket:      "my-bucket",
	}
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrConfigIncomplete)
	assert.Contains(t, err.Error(), "secretAccessKey")

	cfg.SecretAccessKey = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := RewriteConfig{Mode: "proxy"}
	assert.ErrorIs(t, cfg.Validate(), ErrConfigIncomplete)
}
