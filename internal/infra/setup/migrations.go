package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

// MigrateDB 迁移全部数据库表结构。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.RoomMember{},
		&domain.Message{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
