package transactions

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

type redisPubSub interface {
	Publish(ctx context.Context, channel string, message any) error
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
	ChangeChannel(transactionID string) string
}

// messageStream is the part of *goredis.PubSub the pump reads.
type messageStream interface {
	Channel(opts ...goredis.ChannelOption) <-chan *goredis.Message
	Close() error
}

type pubSubClient interface {
	Publish(ctx context.Context, channel string, message any) error
	Subscribe(ctx context.Context, channels ...string) (messageStream, error)
	ChangeChannel(transactionID string) string
}

type redisClientAdapter struct {
	redisPubSub
}

func (a redisClientAdapter) Subscribe(ctx context.Context, channels ...string) (messageStream, error) {
	ps, err := a.redisPubSub.Subscribe(ctx, channels...)
	if err != nil {
		return nil, err
	}
	return ps, nil
}

// RedisFeed carries changes over Redis Pub/Sub so writers in any process
// reach listeners in any other.
type RedisFeed struct {
	client pubSubClient
	logg   *logger.Logger
}

func NewRedisFeed(client redisPubSub, logg *logger.Logger) *RedisFeed {
	return &RedisFeed{client: redisClientAdapter{client}, logg: logg}
}

func (f *RedisFeed) Publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.client.ChangeChannel(change.TransactionID.String()), payload)
}

func (f *RedisFeed) Subscribe(ctx context.Context, transactionID uuid.UUID) (Subscription, error) {
	ps, err := f.client.Subscribe(ctx, f.client.ChangeChannel(transactionID.String()))
	if err != nil {
		return nil, err
	}
	sub := &redisSubscription{
		id:   transactionID,
		ps:   ps,
		out:  make(chan Change, localFeedBuffer),
		done: make(chan struct{}),
	}
	logCtx := context.Background()
	if f.logg != nil {
		logCtx = f.logg.WithTransactionID(logCtx, transactionID.String())
	}
	go sub.pump(logCtx, f.logg)
	return sub, nil
}

type redisSubscription struct {
	id   uuid.UUID
	ps   messageStream
	out  chan Change
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) Changes() <-chan Change { return s.out }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

func (s *redisSubscription) pump(ctx context.Context, logg *logger.Logger) {
	defer close(s.out)
	msgs := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "channel", msg.Channel), "transactions.feed.decode_failed")
				}
				continue
			}
			if change.TransactionID != s.id {
				continue
			}
			select {
			case s.out <- change:
			case <-s.done:
				return
			}
		}
	}
}
