package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/repository"
)

// 分页参数的默认值和上限
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RoomService 实现房间目录：创建、查询、分页列表和成员管理。
// 返回的 user_count 总是读取时刻的实时成员数，不依赖任何存储的计数器。
type RoomService struct {
	roomRepo repository.RoomRepository
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(roomRepo repository.RoomRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo}
}

// Create 创建一个新房间，创建者自动成为成员。
func (s *RoomService) Create(ctx context.Context, name, description, creatorID string) (*domain.RoomInfo, error) {
	logCtx := logrus.WithFields(logrus.Fields{"creator_id": creatorID, "name": name})

	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}

	room := &domain.Room{
		RoomID:      newRoomID(),
		Name:        name,
		Description: description,
		CreatorID:   creatorID,
	}
	if err := s.roomRepo.Save(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrInternalServer
	}

	// 创建者自动加入
	if err := s.roomRepo.AddMember(ctx, room.RoomID, creatorID); err != nil {
		logCtx.WithError(err).Error("Failed to add creator as room member")
		return nil, ErrInternalServer
	}

	logCtx.WithField("room_id", room.RoomID).Info("Room created successfully")
	return room.Info(1), nil
}

// Get 返回单个房间及其实时成员数。
func (s *RoomService) Get(ctx context.Context, roomID string) (*domain.RoomInfo, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to find room")
		return nil, ErrInternalServer
	}
	count, err := s.roomRepo.CountMembers(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to count room members")
		return nil, ErrInternalServer
	}
	return room.Info(count), nil
}

// List 按创建时间倒序分页返回房间列表。page/pageSize 从 1 开始并钳制上限。
func (s *RoomService) List(ctx context.Context, page, pageSize int) ([]*domain.RoomInfo, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	rooms, total, err := s.roomRepo.List(ctx, page, pageSize)
	if err != nil {
		logrus.WithError(err).Error("Failed to list rooms")
		return nil, 0, ErrInternalServer
	}

	roomIDs := make([]string, len(rooms))
	for i := range rooms {
		roomIDs[i] = rooms[i].RoomID
	}
	counts, err := s.roomRepo.MemberCounts(ctx, roomIDs)
	if err != nil {
		logrus.WithError(err).Error("Failed to load member counts")
		return nil, 0, ErrInternalServer
	}

	infos := make([]*domain.RoomInfo, len(rooms))
	for i := range rooms {
		infos[i] = rooms[i].Info(counts[rooms[i].RoomID])
	}
	return infos, total, nil
}

// Join 将用户加入房间。重复加入是幂等的。
func (s *RoomService) Join(ctx context.Context, roomID, userID string) (*domain.RoomInfo, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Warn("Join failed: room not found")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Join failed: repository error")
		return nil, ErrInternalServer
	}

	if err := s.roomRepo.AddMember(ctx, roomID, userID); err != nil {
		logCtx.WithError(err).Error("Join failed: could not add member")
		return nil, ErrInternalServer
	}

	count, err := s.roomRepo.CountMembers(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Join succeeded but member count failed")
		return nil, ErrInternalServer
	}

	logCtx.Info("User joined room")
	return room.Info(count), nil
}

// Leave 将用户移出房间。未加入时为 no-op，不报错。
func (s *RoomService) Leave(ctx context.Context, roomID, userID string) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	if err := s.roomRepo.RemoveMember(ctx, roomID, userID); err != nil {
		logCtx.WithError(err).Error("Leave failed: repository error")
		return ErrInternalServer
	}
	logCtx.Info("User left room")
	return nil
}

// IsMember 检查用户是否为房间成员。
func (s *RoomService) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	ok, err := s.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return false, ErrInternalServer
	}
	return ok, nil
}
