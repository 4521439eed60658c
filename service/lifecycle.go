package service

import (
	"time"

	"foodshare/config"
	"foodshare/pkg/errs"
	"foodshare/pkg/models"
)

// Transition names a lifecycle command applied to a donation.
type Transition string

const (
	TransitionClaim   Transition = "claim"
	TransitionAccept  Transition = "accept"
	TransitionDeliver Transition = "deliver"
	TransitionCancel  Transition = "cancel"
	TransitionDelete  Transition = "delete"
	TransitionUpdate  Transition = "update"
	TransitionExpire  Transition = "expire"
)

// sources lists the statuses each transition may start from.
var sources = map[Transition][]models.DonationStatus{
	TransitionClaim:   {models.StatusAvailable},
	TransitionAccept:  {models.StatusClaimed},
	TransitionDeliver: {models.StatusClaimed, models.StatusInTransit},
	TransitionCancel:  {models.StatusAvailable, models.StatusClaimed},
	TransitionDelete:  {models.StatusAvailable},
	TransitionUpdate:  {models.StatusAvailable},
	TransitionExpire:  {models.StatusAvailable},
}

func (t Transition) AllowedFrom(s models.DonationStatus) bool {
	for _, from := range sources[t] {
		if from == s {
			return true
		}
	}
	return false
}

func invalidState(d *models.Donation, t Transition) error {
	return errs.NewInvalidStateError(string(d.Status), string(t))
}

// lifecycle holds the transition guards. Every plan function is pure: it
// inspects a snapshot and returns the conditional write to attempt.
type lifecycle struct {
	selfDeliveryPolicy string
}

func (l lifecycle) planClaim(d *models.Donation, actor models.Actor, deliveryNeeded bool, now time.Time) (models.StatusChange, error) {
	if actor.Role != models.RoleReceiver {
		return models.StatusChange{}, errs.Forbidden("only receivers can claim donations")
	}
	if d.Status == models.StatusClaimed {
		// Another receiver got there first.
		return models.StatusChange{}, errs.Conflict(string(TransitionClaim))
	}
	if !TransitionClaim.AllowedFrom(d.Status) {
		return models.StatusChange{}, invalidState(d, TransitionClaim)
	}
	if d.Expired(now) {
		return models.StatusChange{}, errs.NewInvalidStateError(string(models.StatusCancelled), string(TransitionClaim))
	}

	receiver := actor.ID
	return models.StatusChange{
		From:           models.StatusAvailable,
		To:             models.StatusClaimed,
		ReceiverID:     &receiver,
		DeliveryNeeded: &deliveryNeeded,
		NotExpiredAt:   &now,
	}, nil
}

func (l lifecycle) planAccept(d *models.Donation, actor models.Actor) (models.StatusChange, error) {
	switch actor.Role {
	case models.RoleVolunteer:
	case models.RoleDonor:
		if d.DonorID != actor.ID {
			return models.StatusChange{}, errs.Forbidden("donors can only deliver their own donations")
		}
	default:
		return models.StatusChange{}, errs.Forbidden("only volunteers or the donor can accept a delivery")
	}

	if d.Status == models.StatusInTransit || (d.Status == models.StatusClaimed && d.DeliveryNeeded && d.VolunteerID != nil) {
		// Somebody already took the task.
		return models.StatusChange{}, errs.Conflict(string(TransitionAccept))
	}
	if !TransitionAccept.AllowedFrom(d.Status) || !d.DeliveryNeeded {
		return models.StatusChange{}, invalidState(d, TransitionAccept)
	}

	volunteer := actor.ID
	to := models.StatusInTransit
	if actor.ID == d.DonorID && l.selfDeliveryPolicy != config.SelfDeliveryTransit {
		to = models.StatusClaimed
	}
	return models.StatusChange{
		From:               models.StatusClaimed,
		To:                 to,
		VolunteerID:        &volunteer,
		RequireNoVolunteer: true,
	}, nil
}

func (l lifecycle) planDeliver(d *models.Donation, actor models.Actor) (models.StatusChange, error) {
	change := models.StatusChange{From: d.Status, To: models.StatusDelivered}

	switch {
	case d.Status == models.StatusClaimed && !d.DeliveryNeeded:
		// Direct pickup: receiver collects from the donor.
		if !isReceiver(d, actor.ID) && d.DonorID != actor.ID {
			return models.StatusChange{}, errs.Forbidden("only the donor or the receiver can confirm a pickup")
		}
		return change, nil

	case d.Status == models.StatusClaimed && d.SelfDelivery():
		if d.DonorID != actor.ID {
			return models.StatusChange{}, errs.Forbidden("only the self-delivering donor can complete this delivery")
		}
		return change, nil

	case d.Status == models.StatusInTransit:
		if d.VolunteerID == nil || *d.VolunteerID != actor.ID {
			return models.StatusChange{}, errs.Forbidden("only the assigned volunteer can complete this delivery")
		}
		return change, nil
	}

	return models.StatusChange{}, invalidState(d, TransitionDeliver)
}

func (l lifecycle) planCancel(d *models.Donation, actor models.Actor) (models.StatusChange, error) {
	if d.DonorID != actor.ID {
		return models.StatusChange{}, errs.Forbidden("only the donor can cancel a donation")
	}
	switch {
	case d.Status == models.StatusAvailable:
		return models.StatusChange{From: models.StatusAvailable, To: models.StatusCancelled}, nil
	case d.Status == models.StatusClaimed && d.VolunteerID == nil:
		return models.StatusChange{
			From:               models.StatusClaimed,
			To:                 models.StatusCancelled,
			ClearReceiver:      true,
			RequireNoVolunteer: true,
		}, nil
	}
	return models.StatusChange{}, invalidState(d, TransitionCancel)
}

// checkOwnedAvailable guards donor-only edits that require an open donation.
func (l lifecycle) checkOwnedAvailable(d *models.Donation, actor models.Actor, t Transition) error {
	if d.DonorID != actor.ID {
		return errs.Forbidden("only the donor can " + string(t) + " a donation")
	}
	if !t.AllowedFrom(d.Status) {
		return invalidState(d, t)
	}
	return nil
}

func isReceiver(d *models.Donation, userID int64) bool {
	return d.ReceiverID != nil && *d.ReceiverID == userID
}
