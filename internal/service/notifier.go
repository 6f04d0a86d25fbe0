package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Notifier delivers fire-and-forget notifications. Callers log failures and
// never propagate them: a failed notification must not undo a successful
// grading or submission.
type Notifier interface {
	Notify(ctx context.Context, userID uint, title, body, link string) error
}

type notification struct {
	UserID uint      `json:"user_id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Link   string    `json:"link,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

type notifier struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewNotifier builds a notifier that publishes to a Redis channel and a NATS
// subject. Either transport may be nil; publishing is attempted on whichever
// is configured.
func NewNotifier(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) Notifier {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notifier{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "notifier").Logger(),
		now:          time.Now,
	}
}

func (n *notifier) Notify(ctx context.Context, userID uint, title, body, link string) error {
	payload, err := json.Marshal(notification{
		UserID: userID,
		Title:  title,
		Body:   body,
		Link:   link,
		SentAt: n.now(),
	})
	if err != nil {
		return err
	}

	var publishErr error
	if n.redis != nil && n.redisChannel != "" {
		if err := n.redis.Publish(ctx, n.redisChannel, payload).Err(); err != nil {
			publishErr = errors.Join(publishErr, err)
		}
	}
	if n.nats != nil && n.natsSubject != "" {
		if err := n.nats.Publish(n.natsSubject, payload); err != nil {
			publishErr = errors.Join(publishErr, err)
		}
	}

	if publishErr != nil {
		n.logger.Warn().Err(publishErr).Uint("user_id", userID).Msg("notification publish failed")
	}

	return publishErr
}
