package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/domain"
	"github.com/baijianruoli/bot-chat/internal/repository"
)

// 历史查询的默认页长和上限
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// replayLimit 加入房间时回放给客户端的最近消息条数
const replayLimit = 20

// ChatService 负责消息的发送与历史查询。
// SendMessage 在持久化成功之前绝不返回成功；广播由调用方 (Hub) 在其后执行。
type ChatService struct {
	msgRepo   repository.MessageRepository
	roomRepo  repository.RoomRepository
	userRepo  repository.UserRepository
	stateRepo repository.StateRepository
}

// NewChatService 创建 ChatService 实例。
func NewChatService(
	msgRepo repository.MessageRepository,
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	stateRepo repository.StateRepository,
) *ChatService {
	if msgRepo == nil || roomRepo == nil || userRepo == nil || stateRepo == nil {
		panic("all repositories must be non-nil for ChatService")
	}
	return &ChatService{
		msgRepo:   msgRepo,
		roomRepo:  roomRepo,
		userRepo:  userRepo,
		stateRepo: stateRepo,
	}
}

// SendMessage 校验、持久化并返回一条新消息。
// 返回的 Message 携带发送时刻的用户快照，可直接用于广播。
func (s *ChatService) SendMessage(ctx context.Context, roomID, userID, content string, msgType int32) (*domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrValidation)
	}

	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Send failed: room lookup error")
		return nil, ErrInternalServer
	}

	isMember, err := s.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		logCtx.WithError(err).Error("Send failed: membership check error")
		return nil, ErrInternalServer
	}
	if !isMember {
		return nil, ErrNotRoomMember
	}

	sender, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Send failed: sender lookup error")
		return nil, ErrInternalServer
	}

	msg := &domain.Message{
		MsgID:     newMsgID(),
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		MsgType:   domain.NormalizeMsgType(msgType),
		CreatedAt: time.Now().UnixMilli(),
		Sender:    sender.PublicProfile(),
	}

	// 持久化失败时不得向发送者报告成功，也不会有任何广播
	if err := s.msgRepo.Append(ctx, msg); err != nil {
		logCtx.WithError(err).Error("Send failed: message append error")
		return nil, ErrStorageUnavailable
	}

	// 缓存和活跃度是尽力而为的派生状态，失败只记日志
	if err := s.stateRepo.CacheMessage(ctx, roomID, msg); err != nil {
		logCtx.WithError(err).Warn("Failed to cache message")
	}
	if err := s.stateRepo.TouchRoomActivity(ctx, roomID); err != nil {
		logCtx.WithError(err).Warn("Failed to touch room activity")
	}

	logCtx.WithField("msg_id", msg.MsgID).Debug("Message persisted")
	return msg, nil
}

// History 按游标 (before_time) 倒序分页返回历史消息。
// 返回 newest-first；调用方负责展示前的重排序。
func (s *ChatService) History(ctx context.Context, roomID, userID string, beforeTime int64, limit int) ([]domain.Message, bool, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, false, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("History failed: room lookup error")
		return nil, false, ErrInternalServer
	}

	isMember, err := s.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		logCtx.WithError(err).Error("History failed: membership check error")
		return nil, false, ErrInternalServer
	}
	if !isMember {
		return nil, false, ErrNotRoomMember
	}

	msgs, hasMore, err := s.msgRepo.History(ctx, roomID, beforeTime, limit)
	if err != nil {
		logCtx.WithError(err).Error("History failed: repository error")
		return nil, false, ErrStorageUnavailable
	}

	s.attachSenders(ctx, msgs)
	return msgs, hasMore, nil
}

// RecentForReplay 返回房间最近的消息 (时间正序)，用于加入时的即时回放。
// 优先读缓存，未命中时从消息存储回填。
func (s *ChatService) RecentForReplay(ctx context.Context, roomID string) ([]domain.Message, error) {
	cached, err := s.stateRepo.RecentMessages(ctx, roomID, replayLimit)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Recent message cache read failed, falling back to store")
	}
	if len(cached) > 0 {
		return cached, nil
	}

	msgs, _, err := s.msgRepo.History(ctx, roomID, 0, replayLimit)
	if err != nil {
		return nil, ErrStorageUnavailable
	}
	// History 返回 newest-first，回放需要时间正序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	s.attachSenders(ctx, msgs)

	if len(msgs) > 0 {
		if err := s.stateRepo.BackfillRecent(ctx, roomID, msgs); err != nil {
			logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to backfill recent message cache")
		}
	}
	return msgs, nil
}

// attachSenders 为一批消息填充发送者快照，单次调用内去重查询。
func (s *ChatService) attachSenders(ctx context.Context, msgs []domain.Message) {
	users := make(map[string]*domain.User)
	for i := range msgs {
		if msgs[i].Sender != nil {
			continue
		}
		user, ok := users[msgs[i].UserID]
		if !ok {
			loaded, err := s.userRepo.FindByID(ctx, msgs[i].UserID)
			if err != nil {
				// 用户可能已注销，历史消息仍然可读
				logrus.WithField("user_id", msgs[i].UserID).Debug("Sender lookup failed for history message")
				users[msgs[i].UserID] = nil
				continue
			}
			user = loaded.PublicProfile()
			users[msgs[i].UserID] = user
		}
		if user != nil {
			msgs[i].Sender = user
		}
	}
}
