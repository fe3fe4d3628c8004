package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "test payload"))
	assert.NoError(t, n.PublishEvent(context.Background(), Event{ID: 1, ToUserID: 2}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishUser(context.Background(), 1, "x"))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
	}
}

func TestNotifier_PublishEventReachesSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	n := NewNotifier(rdb)
	ctx := context.Background()

	sub := rdb.PSubscribe(ctx, "notifications:user:*")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	ch := sub.Channel()

	postID := uint(9)
	require.NoError(t, n.PublishEvent(ctx, Event{ID: 3, Type: "like", FromUserID: 1, ToUserID: 2, PostID: &postID}))

	select {
	case msg := <-ch:
		assert.Equal(t, "notifications:user:2", msg.Channel)
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, uint(3), ev.ID)
		assert.Equal(t, "like", ev.Type)
		require.NotNil(t, ev.PostID)
		assert.Equal(t, postID, *ev.PostID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published notification")
	}
}
