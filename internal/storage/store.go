package storage

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"securelink/internal/logger"
	"securelink/pkg/model"
)

// Store 基于 sqlite 的设置与事件历史存储
type Store struct {
	db *gorm.DB
}

// Open 打开数据库并迁移表结构
func Open(dsn, prefix string, l logger.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         NewGormLogger(l),
		NamingStrategy: schema.NamingStrategy{TablePrefix: prefix},
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.AutoMigrate(&Setting{}, &RewriteEventRecord{}); err != nil {
		return nil, fmt.Errorf("迁移表结构失败: %w", err)
	}
	return &Store{db: db}, nil
}

// Close 关闭底层连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadRewriteConfig 读取上次保存的重写配置，逐字段合并到文档化默认值上；
// 未保存过或字段缺失时保持默认值
func (s *Store) LoadRewriteConfig() (model.RewriteConfig, error) {
	cfg := model.DefaultRewriteConfig()

	var st Setting
	err := s.db.First(&st, "key = ?", SettingKeyRewriteConfig).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	doc := st.Value
	if v := gjson.Get(doc, "matchPattern"); v.Exists() {
		cfg.MatchPattern = v.String()
	}
	if v := gjson.Get(doc, "mode"); v.Exists() {
		cfg.Mode = model.RewriteMode(v.String())
	}
	if v := gjson.Get(doc, "paramKey"); v.Exists() {
		cfg.ParamKey = v.String()
	}
	if v := gjson.Get(doc, "paramValue"); v.Exists() {
		cfg.ParamValue = v.String()
	}
	if v := gjson.Get(doc, "accessKeyId"); v.Exists() {
		cfg.AccessKeyID = v.String()
	}
	if v := gjson.Get(doc, "secretAccessKey"); v.Exists() {
		cfg.SecretAccessKey = v.String()
	}
	if v := gjson.Get(doc, "region"); v.Exists() {
		cfg.Region = v.String()
	}
	if v := gjson.Get(doc, "endpoint"); v.Exists() {
		cfg.Endpoint = v.String()
	}
	if v := gjson.Get(doc, "bucket"); v.Exists() {
		cfg.Bucket = v.String()
	}
	if v := gjson.Get(doc, "expirySeconds"); v.Exists() {
		cfg.ExpirySeconds = int(v.Int())
	}
	return cfg, nil
}

// SaveRewriteConfig 在现有设置文档上逐字段打补丁后持久化
func (s *Store) SaveRewriteConfig(cfg model.RewriteConfig) error {
	doc := "{}"
	var st Setting
	if err := s.db.First(&st, "key = ?", SettingKeyRewriteConfig).Error; err == nil && st.Value != "" {
		doc = st.Value
	}

	var err error
	for _, f := range []struct {
		path  string
		value any
	}{
		{"matchPattern", cfg.MatchPattern},
		{"mode", string(cfg.Mode)},
		{"paramKey", cfg.ParamKey},
		{"paramValue", cfg.ParamValue},
		{"accessKeyId", cfg.AccessKeyID},
		{"secretAccessKey", cfg.SecretAccessKey},
		{"region", cfg.Region},
		{"endpoint", cfg.Endpoint},
		{"bucket", cfg.Bucket},
		{"expirySeconds", cfg.ExpirySeconds},
	} {
		doc, err = sjson.Set(doc, f.path, f.value)
		if err != nil {
			return fmt.Errorf("写入配置字段 %s 失败: %w", f.path, err)
		}
	}

	rec := Setting{Key: SettingKeyRewriteConfig, Value: doc}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

// LoadDevToolsURL 读取上次使用的 DevTools 端点，未保存过时返回空串
func (s *Store) LoadDevToolsURL() (string, error) {
	var st Setting
	err := s.db.First(&st, "key = ?", SettingKeyDevToolsURL).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return st.Value, nil
}

// SaveDevToolsURL 记住本次使用的 DevTools 端点
func (s *Store) SaveDevToolsURL(url string) error {
	rec := Setting{Key: SettingKeyDevToolsURL, Value: url}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

// RecordEvent 追加一条重写事件历史
func (s *Store) RecordEvent(session model.SessionID, evt model.Event) error {
	rec := RewriteEventRecord{
		SessionID:  string(session),
		TargetID:   string(evt.Target),
		Type:       evt.Type,
		Source:     evt.Source,
		URL:        evt.URL,
		SecuredURL: evt.SecuredURL,
		Error:      evt.Error,
		Timestamp:  evt.Timestamp,
	}
	return s.db.Create(&rec).Error
}

// RecentEvents 按时间倒序返回最近的事件记录
func (s *Store) RecentEvents(limit int) ([]RewriteEventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []RewriteEventRecord
	err := s.db.Order("timestamp DESC").Limit(limit).Find(&out).Error
	return out, err
}
