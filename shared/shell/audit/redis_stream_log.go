package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

// Stream entry field names.
const (
	FieldUserID     = "user_id"
	FieldAction     = "action"
	FieldDetails    = "details"
	FieldRecordedAt = "recorded_at"
)

var (
	// ErrEmptyStreamName is returned when the log is built without a stream key.
	ErrEmptyStreamName = errors.New("audit stream name must not be empty")

	// ErrAppendFailed wraps errors while appending an audit entry.
	ErrAppendFailed = errors.New("appending audit entry failed")
)

// StreamAdder is the part of redis.Cmdable the log needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamLog appends one stream entry per audit record with XADD.
// The details map is stored as a single JSON field.
type RedisStreamLog struct {
	client StreamAdder
	stream string
	maxLen int64
	now    func() time.Time
}

// RedisOption configures a RedisStreamLog.
type RedisOption func(*RedisStreamLog)

// WithMaxLen caps the stream approximately at n entries (XADD MAXLEN ~ n).
func WithMaxLen(n int64) RedisOption {
	return func(l *RedisStreamLog) {
		l.maxLen = n
	}
}

// WithClock overrides the clock used for recorded_at.
func WithClock(now func() time.Time) RedisOption {
	return func(l *RedisStreamLog) {
		l.now = now
	}
}

// NewRedisStreamLog creates an audit log appending to stream.
func NewRedisStreamLog(client StreamAdder, stream string, opts ...RedisOption) (*RedisStreamLog, error) {
	if stream == "" {
		return nil, ErrEmptyStreamName
	}

	l := &RedisStreamLog{
		client: client,
		stream: stream,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Record appends the entry and returns the broker error, if any.
func (l *RedisStreamLog) Record(
	ctx context.Context,
	userID uuid.UUID,
	action lending.AuditAction,
	details map[string]string,
) error {
	if details == nil {
		details = map[string]string{}
	}

	encodedDetails, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(details)
	if err != nil {
		return errors.Join(ErrAppendFailed, err)
	}

	args := &redis.XAddArgs{
		Stream: l.stream,
		Values: map[string]any{
			FieldUserID:     userID.String(),
			FieldAction:     string(action),
			FieldDetails:    encodedDetails,
			FieldRecordedAt: l.now().UTC().Format(time.RFC3339Nano),
		},
	}

	if l.maxLen > 0 {
		args.MaxLen = l.maxLen
		args.Approx = true
	}

	if err = l.client.XAdd(ctx, args).Err(); err != nil {
		return errors.Join(ErrAppendFailed, err)
	}

	return nil
}

var _ lending.ActivityAuditLog = (*RedisStreamLog)(nil)
