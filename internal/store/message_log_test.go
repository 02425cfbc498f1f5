package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
)

func TestMessageLog_Append_Persists_Message(t *testing.T) {
	req := require.New(t)
	st, err := sqlite.New(":memory:")
	req.NoError(err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	at := time.Date(2024, 1, 15, 13, 45, 2, 0, time.UTC)
	log := store.NewMessageLog(st)

	req.NoError(log.Append(ctx, core.Message{Sender: "alice", Body: "hello", CreatedAt: at}))

	msgs, err := st.ListRecentMessages(ctx, 10)
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("alice", msgs[0].Sender)
	req.Equal("hello", msgs[0].Body)
	req.True(msgs[0].CreatedAt.Equal(at))
}

func TestMessageLog_Append_Fails_On_Closed_Store(t *testing.T) {
	req := require.New(t)
	st, err := sqlite.New(":memory:")
	req.NoError(err)
	req.NoError(st.Close())

	err = store.NewMessageLog(st).Append(context.Background(), core.Message{Sender: "a", Body: "b", CreatedAt: time.Now()})
	req.Error(err)
}
