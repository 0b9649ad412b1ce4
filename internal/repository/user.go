// Package repository 定义了存储层契约。实现位于 internal/infra 下。
package repository

import (
	"context"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

// UserRepository 定义了用户数据的存储和检索操作。
type UserRepository interface {
	// FindByID 根据用户 ID 查找用户；不存在时返回 ErrUserNotFound。
	FindByID(ctx context.Context, userID string) (*domain.User, error)

	// FindByUsername 根据用户名查找用户；不存在时返回 ErrUserNotFound。
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// Save 保存用户；用户名冲突时返回 ErrDuplicateEntry。
	Save(ctx context.Context, user *domain.User) error
}
