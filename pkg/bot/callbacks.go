package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"foodshare/pkg/errs"
	"foodshare/pkg/logger"
	"foodshare/pkg/models"
)

type action string

const (
	actionClaimPickup   action = "claim_pickup"
	actionClaimDelivery action = "claim_delivery"
	actionAccept        action = "accept"
	actionDeliver       action = "deliver"
	actionCancel        action = "cancel"
)

func (a action) label() string {
	switch a {
	case actionAccept:
		return "🚚 Take delivery"
	case actionDeliver:
		return "✅ Delivered"
	case actionCancel:
		return "❌ Cancel"
	}
	return string(a)
}

// callbackData is the button payload; telebot prefixes it with \f on the wire.
func callbackData(a action, id int64) string {
	return string(a) + "|" + strconv.FormatInt(id, 10)
}

func parseCallback(data string) (action, int64, error) {
	data = strings.TrimPrefix(data, "\f")
	name, rawID, ok := strings.Cut(data, "|")
	if !ok {
		return "", 0, fmt.Errorf("malformed callback %q", data)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed callback %q: %w", data, err)
	}
	switch a := action(name); a {
	case actionClaimPickup, actionClaimDelivery, actionAccept, actionDeliver, actionCancel:
		return a, id, nil
	}
	return "", 0, fmt.Errorf("unknown callback action %q", name)
}

// actionsFor lists the buttons the actor can press on d right now.
func actionsFor(d *models.Donation, actor models.Actor) []action {
	var out []action
	isDonor := actor.Role == models.RoleDonor && d.DonorID == actor.ID
	open := d.Status == models.StatusClaimed && d.DeliveryNeeded && d.VolunteerID == nil

	switch {
	case isDonor:
		if open {
			out = append(out, actionAccept)
		}
		if d.Status == models.StatusClaimed && (!d.DeliveryNeeded || d.SelfDelivery()) {
			out = append(out, actionDeliver)
		}
		if d.Status == models.StatusInTransit && d.SelfDelivery() {
			out = append(out, actionDeliver)
		}
		if d.Status == models.StatusAvailable || (d.Status == models.StatusClaimed && d.VolunteerID == nil) {
			out = append(out, actionCancel)
		}

	case actor.Role == models.RoleReceiver:
		if d.Status == models.StatusClaimed && !d.DeliveryNeeded && d.ReceiverID != nil && *d.ReceiverID == actor.ID {
			out = append(out, actionDeliver)
		}

	case actor.Role == models.RoleVolunteer:
		if open {
			out = append(out, actionAccept)
		}
		if d.Status == models.StatusInTransit && d.VolunteerID != nil && *d.VolunteerID == actor.ID {
			out = append(out, actionDeliver)
		}
	}
	return out
}

func (b *Bot) handleCallback(c tele.Context) error {
	a, id, err := parseCallback(c.Callback().Data)
	if err != nil {
		b.Log.Warning("bad callback", logger.Error(err))
		return c.Respond()
	}
	s, ok := b.session(c.Sender().ID)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: messages["link_first"], ShowAlert: true})
	}

	ctx := context.Background()
	ds := b.Svc.Donation()
	var d *models.Donation
	switch a {
	case actionClaimPickup:
		d, err = ds.Claim(ctx, s.actor(), id, false)
	case actionClaimDelivery:
		d, err = ds.Claim(ctx, s.actor(), id, true)
	case actionAccept:
		d, err = ds.Accept(ctx, s.actor(), id)
	case actionDeliver:
		d, err = ds.Deliver(ctx, s.actor(), id)
	case actionCancel:
		d, err = ds.Cancel(ctx, s.actor(), id)
	}
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: describeError(err), ShowAlert: true})
	}

	if _, err := b.Bot.Edit(c.Callback().Message, formatDonation(d)); err != nil {
		b.Log.Warning("edit callback message failed", logger.Error(err))
	}
	return c.Respond(&tele.CallbackResponse{Text: "✅ " + string(d.Status)})
}

func describeError(err error) string {
	switch {
	case errs.IsConflict(err):
		return "Someone else got there first."
	case errs.IsInvalidState(err), errs.IsValidation(err):
		return err.Error()
	case errs.IsForbidden(err):
		return "You are not allowed to do that."
	case errs.IsNotFound(err):
		return "This donation no longer exists."
	}
	return messages["failed"]
}
