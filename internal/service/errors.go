package service

import "errors"

// 业务错误。Handler 层通过 errors.Is 将其映射为响应码。
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username already exists")
	ErrValidation           = errors.New("invalid input")
	ErrNotRoomMember        = errors.New("not in room")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrInternalServer       = errors.New("internal server error")
)
