package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"foodshare/pkg/errs"
	"foodshare/pkg/logger"
	"foodshare/pkg/models"
)

type sent struct {
	to   string
	what interface{}
}

type fakeSender struct {
	sent []sent
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.sent = append(f.sent, sent{to: to.Recipient(), what: what})
	return &tele.Message{}, nil
}

func int64p(v int64) *int64 { return &v }

func TestPush(t *testing.T) {
	out := &fakeSender{}
	b := &Bot{Log: logger.NewNop(), out: out, sessions: map[int64]*session{}}

	err := b.Push(context.Background(), &models.User{ID: 1}, "hi")
	assert.ErrorIs(t, err, ErrNotLinked)
	assert.Empty(t, out.sent)

	err = b.Push(context.Background(), &models.User{ID: 1, TelegramID: int64p(555)}, "Donation #3 was claimed.")
	require.NoError(t, err)
	require.Len(t, out.sent, 1)
	assert.Equal(t, "555", out.sent[0].to)
	assert.Equal(t, "🔔 Donation #3 was claimed.", out.sent[0].what)
}

func TestParseCallback(t *testing.T) {
	a, id, err := parseCallback("\f" + callbackData(actionClaimDelivery, 42))
	require.NoError(t, err)
	assert.Equal(t, actionClaimDelivery, a)
	assert.Equal(t, int64(42), id)

	a, id, err = parseCallback("deliver|7")
	require.NoError(t, err)
	assert.Equal(t, actionDeliver, a)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"", "deliver", "deliver|x", "take|1"} {
		_, _, err := parseCallback(bad)
		assert.Error(t, err, bad)
	}
}

func TestActionsFor(t *testing.T) {
	donor := models.Actor{ID: 1, Role: models.RoleDonor}
	receiver := models.Actor{ID: 2, Role: models.RoleReceiver}
	volunteer := models.Actor{ID: 3, Role: models.RoleVolunteer}

	available := &models.Donation{ID: 10, DonorID: 1, Status: models.StatusAvailable}
	assert.Equal(t, []action{actionCancel}, actionsFor(available, donor))
	assert.Empty(t, actionsFor(available, volunteer))

	pickup := &models.Donation{ID: 11, DonorID: 1, Status: models.StatusClaimed, ReceiverID: int64p(2)}
	assert.Equal(t, []action{actionDeliver, actionCancel}, actionsFor(pickup, donor))
	assert.Equal(t, []action{actionDeliver}, actionsFor(pickup, receiver))
	assert.Empty(t, actionsFor(pickup, volunteer))

	open := &models.Donation{ID: 12, DonorID: 1, Status: models.StatusClaimed, ReceiverID: int64p(2), DeliveryNeeded: true}
	assert.Equal(t, []action{actionAccept, actionCancel}, actionsFor(open, donor))
	assert.Equal(t, []action{actionAccept}, actionsFor(open, volunteer))
	assert.Empty(t, actionsFor(open, receiver))

	transit := &models.Donation{ID: 13, DonorID: 1, Status: models.StatusInTransit, ReceiverID: int64p(2), DeliveryNeeded: true, VolunteerID: int64p(3)}
	assert.Equal(t, []action{actionDeliver}, actionsFor(transit, volunteer))
	assert.Empty(t, actionsFor(transit, donor))
	assert.Empty(t, actionsFor(transit, models.Actor{ID: 4, Role: models.RoleVolunteer}))

	self := &models.Donation{ID: 14, DonorID: 1, Status: models.StatusClaimed, ReceiverID: int64p(2), DeliveryNeeded: true, VolunteerID: int64p(1)}
	assert.Equal(t, []action{actionDeliver}, actionsFor(self, donor))
}

func TestFormatDonation(t *testing.T) {
	d := &models.Donation{
		ID:          5,
		FoodType:    "rice",
		Description: "veg",
		Quantity:    8,
		Location:    models.Location{Address: "MG Road"},
		Status:      models.StatusAvailable,
		ExpiryTime:  time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC),
	}
	assert.Equal(t, "🍲 #5 rice × 8\nveg\n📍 MG Road\n📊 available until 04 Mar 18:30", formatDonation(d))
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t, "Someone else got there first.", describeError(errs.Conflict("claim")))
	assert.Equal(t, `cannot accept donation in status "delivered"`, describeError(errs.NewInvalidStateError("delivered", "accept")))
	assert.Equal(t, "You are not allowed to do that.", describeError(errs.Forbidden("x")))
}
