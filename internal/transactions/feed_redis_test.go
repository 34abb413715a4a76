package transactions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
)

type memPubSub struct {
	mu      sync.Mutex
	streams map[string][]*memStream
}

func newMemPubSub() *memPubSub {
	return &memPubSub{streams: make(map[string][]*memStream)}
}

func (m *memPubSub) Publish(_ context.Context, channel string, message any) error {
	payload, ok := message.([]byte)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.streams[channel] {
		s.msgs <- &goredis.Message{Channel: channel, Payload: string(payload)}
	}
	return nil
}

func (m *memPubSub) Subscribe(_ context.Context, channels ...string) (messageStream, error) {
	s := &memStream{msgs: make(chan *goredis.Message, 8)}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range channels {
		m.streams[ch] = append(m.streams[ch], s)
	}
	return s, nil
}

func (m *memPubSub) ChangeChannel(transactionID string) string {
	return "pixcheckout:txn_changes:" + transactionID
}

// send pushes a raw payload onto every stream of channel.
func (m *memPubSub) send(channel, payload string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.streams[channel] {
		s.msgs <- &goredis.Message{Channel: channel, Payload: payload}
	}
}

type memStream struct {
	msgs   chan *goredis.Message
	mu     sync.Mutex
	closed bool
}

func (s *memStream) Channel(...goredis.ChannelOption) <-chan *goredis.Message { return s.msgs }

func (s *memStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *memStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestRedisFeedDeliversPublishedChange(t *testing.T) {
	ps := newMemPubSub()
	feed := &RedisFeed{client: ps}
	ctx := context.Background()
	id := uuid.New()

	sub, err := feed.Subscribe(ctx, id)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	require.NoError(t, feed.Publish(ctx, Change{TransactionID: id, PixID: "pix-1", Status: enums.TransactionStatusPaid, TotalValue: decimal.RequireFromString("67.00")}))

	select {
	case got := <-sub.Changes():
		assert.Equal(t, id, got.TransactionID)
		assert.Equal(t, "pix-1", got.PixID)
		assert.Equal(t, enums.TransactionStatusPaid, got.Status)
		assert.True(t, got.TotalValue.Equal(decimal.NewFromInt(67)))
	case <-time.After(time.Second):
		t.Fatal("expected a change")
	}
}

func TestRedisFeedDropsForeignAndMalformedMessages(t *testing.T) {
	ps := newMemPubSub()
	feed := &RedisFeed{client: ps}
	ctx := context.Background()
	id := uuid.New()

	sub, err := feed.Subscribe(ctx, id)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	channel := ps.ChangeChannel(id.String())
	ps.send(channel, "{not json")
	ps.send(channel, fmt.Sprintf(`{"transaction_id":%q,"status":"paid","total_value":"67"}`, uuid.NewString()))
	require.NoError(t, feed.Publish(ctx, Change{TransactionID: uuid.New(), Status: enums.TransactionStatusPaid}))
	require.NoError(t, feed.Publish(ctx, Change{TransactionID: id, Status: enums.TransactionStatusCancelled}))

	select {
	case got := <-sub.Changes():
		assert.Equal(t, id, got.TransactionID)
		assert.Equal(t, enums.TransactionStatusCancelled, got.Status)
	case <-time.After(time.Second):
		t.Fatal("expected the matching change")
	}
	select {
	case extra := <-sub.Changes():
		t.Fatalf("unexpected extra change %+v", extra)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestRedisFeedCloseEndsPump(t *testing.T) {
	ps := newMemPubSub()
	feed := &RedisFeed{client: ps}
	id := uuid.New()

	sub, err := feed.Subscribe(context.Background(), id)
	require.NoError(t, err)
	stream := ps.streams[ps.ChangeChannel(id.String())][0]

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.True(t, stream.Closed())

	select {
	case _, ok := <-sub.Changes():
		assert.False(t, ok, "changes channel should close once the pump returns")
	case <-time.After(time.Second):
		t.Fatal("pump did not stop after Close")
	}
}
