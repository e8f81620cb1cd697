package errors

import (
	"errors"
	"fmt"
)

// Common error types for better error handling
var (
	// Resolution errors
	ErrNoTrackFound     = errors.New("no track found for query")
	ErrPlaylistTooLarge = errors.New("playlist exceeds the maximum allowed size")
	ErrDownloadFailed   = errors.New("audio download failed")
	ErrUnsupportedInput = errors.New("unsupported input")

	// Queue errors
	ErrQueueEmpty      = errors.New("queue is empty")
	ErrInvalidPosition = errors.New("invalid queue position")

	// Session errors
	ErrNoSession         = errors.New("no active session for guild")
	ErrSessionDestroyed  = errors.New("session has been destroyed")
	ErrNotInVoiceChannel = errors.New("you must be in a voice channel")
	ErrChannelFull       = errors.New("voice channel is full")

	// Connection errors
	ErrNoVoiceConnection = errors.New("not connected to voice channel")
	ErrNotPlaying        = errors.New("no track is currently playing")

	// Persistence errors
	ErrNoSnapshot = errors.New("no queue snapshot available")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidURL   = errors.New("invalid URL")
)

// UserError wraps an error with a user-friendly message
type UserError struct {
	Err     error
	Message string
}

func (e *UserError) Error() string {
	return e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func (e *UserError) UserMessage() string {
	return e.Message
}

// NewUserError creates a new user error
func NewUserError(err error, message string) *UserError {
	return &UserError{
		Err:     err,
		Message: message,
	}
}

// WrapUserError wraps an error with a formatted user-friendly message
func WrapUserError(err error, format string, args ...interface{}) *UserError {
	return &UserError{
		Err:     err,
		Message: fmt.Sprintf(format, args...),
	}
}

// GetUserMessage extracts user-friendly message from error
func GetUserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage()
	}

	switch {
	case errors.Is(err, ErrNoTrackFound):
		return "🔍 Nothing found for that query"
	case errors.Is(err, ErrPlaylistTooLarge):
		return "📋 That playlist is too large to enqueue"
	case errors.Is(err, ErrDownloadFailed):
		return "⬇️ Download failed. Please try again later"
	case errors.Is(err, ErrQueueEmpty):
		return "📋 Queue is empty. Use `/play` to add tracks"
	case errors.Is(err, ErrInvalidPosition):
		return "❌ That queue position does not exist"
	case errors.Is(err, ErrNoSession):
		return "🔇 The bot is not playing in this server"
	case errors.Is(err, ErrNotInVoiceChannel):
		return "🔊 You need to join a voice channel first"
	case errors.Is(err, ErrChannelFull):
		return "🔊 That voice channel is full"
	case errors.Is(err, ErrNotPlaying):
		return "❌ Nothing is playing right now"
	case errors.Is(err, ErrNoSnapshot):
		return "💾 No saved queue found for this server"
	case errors.Is(err, ErrInvalidURL):
		return "🔗 Invalid URL. Please provide a valid link"
	default:
		return "❌ An error occurred. Please try again later"
	}
}
