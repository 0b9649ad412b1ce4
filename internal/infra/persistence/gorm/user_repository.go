// Package gormpersistence 提供 repository 接口的 GORM 实现。
package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/repository"
)

// GormUserRepository 是 UserRepository 接口的 GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository 创建 GormUserRepository 实例
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

// FindByID 根据用户 ID 查找用户
func (r *GormUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user by id %s: %w", userID, err)
	}
	return &user, nil
}

// FindByUsername 根据用户名查找用户
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user by username '%s': %w", username, err)
	}
	return &user, nil
}

// Save 保存用户信息（创建或更新）
func (r *GormUserRepository) Save(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save user (id: %s, username: %s): %w", user.UserID, user.Username, err)
	}
	return nil
}

// isDuplicateEntryError 检查唯一约束错误。
// MySQL 走驱动错误码 1062；SQLite (测试环境) 走错误字符串。
func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "Duplicate entry")
}
