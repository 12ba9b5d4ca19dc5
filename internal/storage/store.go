package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"activitylog/internal/config"
	"activitylog/internal/ctxkeys"
	"activitylog/internal/logger"
	"activitylog/internal/stream"
	"activitylog/pkg/domain"
)

// Activity 活动记录表
type Activity struct {
	ID           uint   `gorm:"primaryKey"`
	ExtensionID  string `gorm:"size:128;index"`
	ActivityType string `gorm:"size:32;index"`
	APICall      string `gorm:"size:255;index"`
	Args         string
	ArgURL       string
	PageURL      string
	PageTitle    string
	Time         int64 `gorm:"index"`
	Other        string
	CreatedAt    time.Time
}

// Store 活动历史存储
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// Open 打开 sqlite 数据库并迁移表结构
func Open(c *config.Config, l logger.Logger) (*Store, error) {
	if l == nil {
		l = logger.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(c.Sqlite.Dsn), &gorm.Config{
		Logger:         NewGormLogger(l),
		NamingStrategy: schema.NamingStrategy{TablePrefix: c.Sqlite.Prefix},
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.AutoMigrate(&Activity{}); err != nil {
		return nil, fmt.Errorf("迁移表结构失败: %w", err)
	}
	l.Info("活动历史存储已就绪", "dsn", c.Sqlite.Dsn)
	return &Store{db: db, log: l}, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save 保存一条活动，返回分配的活动 ID
func (s *Store) Save(ctx context.Context, ev domain.ActivityEvent) (domain.ActivityID, error) {
	row, err := toRow(ev)
	if err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("保存活动失败: %w", err)
	}
	return domain.ActivityID(strconv.FormatUint(uint64(row.ID), 10)), nil
}

// ListByExtension 按时间顺序列出某个扩展的全部活动
func (s *Store) ListByExtension(ctx context.Context, ext domain.ExtensionID) ([]domain.ActivityEvent, error) {
	var rows []Activity
	err := s.db.WithContext(ctx).
		Where("extension_id = ?", string(ext)).
		Order("time ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询活动失败: %w", err)
	}
	out := make([]domain.ActivityEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

// DeleteByExtension 删除某个扩展的全部活动，返回删除条数
func (s *Store) DeleteByExtension(ctx context.Context, ext domain.ExtensionID) (int64, error) {
	res := s.db.WithContext(ctx).Where("extension_id = ?", string(ext)).Delete(&Activity{})
	if res.Error != nil {
		return 0, fmt.Errorf("删除活动失败: %w", res.Error)
	}
	s.log.Info("删除扩展活动历史", "extensionID", string(ext), "rows", res.RowsAffected)
	return res.RowsAffected, nil
}

// DeleteActivities 按活动 ID 删除
func (s *Store) DeleteActivities(ctx context.Context, ids []domain.ActivityID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]uint, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseUint(string(id), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("活动 ID 无效 %q: %w", id, err)
		}
		keys = append(keys, uint(n))
	}
	res := s.db.WithContext(ctx).Delete(&Activity{}, keys)
	if res.Error != nil {
		return 0, fmt.Errorf("删除活动失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Listener 返回将事件写入历史的监听器，写入失败只记录日志
func (s *Store) Listener(timeout time.Duration) stream.Listener {
	return func(ev domain.ActivityEvent) {
		ctx, cancel := context.WithTimeout(ctxkeys.WithTraceID(context.Background()), timeout)
		defer cancel()
		if _, err := s.Save(ctx, ev); err != nil {
			s.log.Err(err, "归档活动失败", "extensionID", string(ev.ExtensionID), "apiCall", ev.APICall)
		}
	}
}

func toRow(ev domain.ActivityEvent) (Activity, error) {
	row := Activity{
		ExtensionID:  string(ev.ExtensionID),
		ActivityType: string(ev.ActivityType),
		APICall:      ev.APICall,
		Args:         ev.Args,
		ArgURL:       ev.ArgURL,
		PageURL:      ev.PageURL,
		PageTitle:    ev.PageTitle,
		Time:         ev.Time,
	}
	if ev.Other != nil {
		b, err := json.Marshal(ev.Other)
		if err != nil {
			return Activity{}, fmt.Errorf("序列化附加信息失败: %w", err)
		}
		row.Other = string(b)
	}
	return row, nil
}

func fromRow(r Activity) domain.ActivityEvent {
	ev := domain.ActivityEvent{
		ActivityID:   domain.ActivityID(strconv.FormatUint(uint64(r.ID), 10)),
		ExtensionID:  domain.ExtensionID(r.ExtensionID),
		ActivityType: domain.ActivityType(r.ActivityType),
		APICall:      r.APICall,
		Args:         r.Args,
		ArgURL:       r.ArgURL,
		PageURL:      r.PageURL,
		PageTitle:    r.PageTitle,
		Time:         r.Time,
	}
	if r.Other != "" {
		var other domain.ActivityOther
		if err := json.Unmarshal([]byte(r.Other), &other); err == nil {
			ev.Other = &other
		}
	}
	return ev
}
