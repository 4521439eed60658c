package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare/pkg/errs"
	"foodshare/pkg/models"
)

type pushed struct {
	chatID  int64
	message string
}

type chanPusher chan pushed

func (p chanPusher) Push(_ context.Context, user *models.User, message string) error {
	p <- pushed{chatID: *user.TelegramID, message: message}
	return nil
}

func TestNotification_MarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ns := f.svc.Notification()

	id := int64(1)
	n, err := ns.Notify(ctx, f.donor.ID, &id, "hello")
	require.NoError(t, err)
	assert.False(t, n.IsRead)

	_, err = ns.MarkRead(ctx, f.receiver, n.ID)
	assert.True(t, errs.IsForbidden(err))

	read, err := ns.MarkRead(ctx, f.donor, n.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	again, err := ns.MarkRead(ctx, f.donor, n.ID)
	require.NoError(t, err)
	assert.True(t, again.IsRead)

	list, err := ns.ListForUser(ctx, f.donor, f.donor.ID)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, 0, list.Unread)

	_, err = ns.MarkRead(ctx, f.donor, uuid.New())
	assert.True(t, errs.IsNotFound(err))
}

func TestNotification_ListIsPrivate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Notification().ListForUser(context.Background(), f.receiver, f.donor.ID)
	assert.True(t, errs.IsForbidden(err))
}

func TestNotification_Push(t *testing.T) {
	pusher := make(chanPusher, 4)
	f := newFixture(t, func(o *Options) { o.Pusher = pusher })
	ctx := context.Background()

	_, err := f.svc.User().UpdateProfile(ctx, f.donor, f.donor.ID, ProfileUpdate{Name: "Dana", Phone: "+91 98765-43210"})
	require.NoError(t, err)
	_, err = f.svc.User().LinkTelegram(ctx, "919876543210", 777)
	require.NoError(t, err)

	d := f.donate(t)
	_, err = f.svc.Donation().Claim(ctx, f.receiver, d.ID, false)
	require.NoError(t, err)

	select {
	case p := <-pusher:
		assert.Equal(t, int64(777), p.chatID)
		assert.Contains(t, p.message, "claimed")
	case <-time.After(2 * time.Second):
		t.Fatal("push not delivered")
	}
}
