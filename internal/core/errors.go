package core

import "fmt"

// ErrorKind groups domain errors by how a client should treat them.
type ErrorKind string

const (
	KindInvalidInput  ErrorKind = "invalid_input"
	KindRateLimited   ErrorKind = "rate_limited"
	KindNotFound      ErrorKind = "not_found"
	KindCapacity      ErrorKind = "capacity"
	KindAuthorization ErrorKind = "authorization"
	KindExhausted     ErrorKind = "exhausted"
)

// Error codes for domain errors.
const (
	ErrCodeInvalidName    = "invalid_name"
	ErrCodeInvalidCode    = "invalid_code"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeRoomNotFound   = "room_not_found"
	ErrCodeRoomFull       = "room_full"
	ErrCodeCodeExhausted  = "code_exhausted"
	ErrCodeAlreadyJoined  = "already_joined"
	ErrCodeNotInRoom      = "not_in_room"
	ErrCodeNotHost        = "not_host"
	ErrCodeSelfKick       = "self_kick"
	ErrCodeTargetNotFound = "target_not_found"
)

var (
	ErrInvalidName    = coreError(ErrCodeInvalidName, KindInvalidInput, "Invalid operator name (max 16 characters)")
	ErrInvalidCode    = coreError(ErrCodeInvalidCode, KindInvalidInput, "Invalid room code format (use 4 characters)")
	ErrRateLimited    = coreError(ErrCodeRateLimited, KindRateLimited, "Rate limit exceeded. Please wait before trying again.")
	ErrRoomNotFound   = coreError(ErrCodeRoomNotFound, KindNotFound, "Room not found. Check the code and try again.")
	ErrRoomFull       = coreError(ErrCodeRoomFull, KindCapacity, "Room is full (5/5 operators)")
	ErrCodeExhausted  = coreError(ErrCodeCodeExhausted, KindExhausted, "Could not generate unique room ID. Please try again.")
	ErrAlreadyJoined  = coreError(ErrCodeAlreadyJoined, KindInvalidInput, "Already in a room. Leave it first.")
	ErrNotInRoom      = coreError(ErrCodeNotInRoom, KindNotFound, "Not in a room")
	ErrKickNoRoom     = coreError(ErrCodeRoomNotFound, KindNotFound, "Room not found")
	ErrNotHost        = coreError(ErrCodeNotHost, KindAuthorization, "Only the host can kick users")
	ErrSelfKick       = coreError(ErrCodeSelfKick, KindAuthorization, "Cannot kick yourself")
	ErrTargetNotFound = coreError(ErrCodeTargetNotFound, KindNotFound, "User not found in room")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Kind    ErrorKind
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is matches any CoreError with the same code.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func coreError(code string, kind ErrorKind, msg string) *CoreError {
	return &CoreError{Code: code, Kind: kind, Message: msg}
}

// roomFullError reports the configured capacity in the message.
func roomFullError(capacity int) *CoreError {
	if capacity == 5 {
		return ErrRoomFull
	}
	return coreError(ErrCodeRoomFull, KindCapacity, fmt.Sprintf("Room is full (%d/%d operators)", capacity, capacity))
}
