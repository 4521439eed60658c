package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"foodshare/pkg/errs"
	"foodshare/pkg/geocode"
	"foodshare/pkg/logger"
	"foodshare/pkg/metrics"
	"foodshare/pkg/models"
	"foodshare/storage"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

// ChatParties tells a caller who they may message about a donation.
type ChatParties struct {
	DonationID   int64   `json:"donation_id"`
	DonorID      int64   `json:"donor_id"`
	ReceiverID   *int64  `json:"receiver_id"`
	VolunteerID  *int64  `json:"volunteer_id"`
	Counterparts []int64 `json:"counterparts"`
}

type DonationService interface {
	Create(ctx context.Context, actor models.Actor, payload models.DonationPayload) (*models.Donation, error)
	Update(ctx context.Context, actor models.Actor, id int64, payload models.DonationPayload) (*models.Donation, error)
	Get(ctx context.Context, id int64) (*models.Donation, error)
	Claim(ctx context.Context, actor models.Actor, id int64, deliveryNeeded bool) (*models.Donation, error)
	Accept(ctx context.Context, actor models.Actor, id int64) (*models.Donation, error)
	Deliver(ctx context.Context, actor models.Actor, id int64) (*models.Donation, error)
	Cancel(ctx context.Context, actor models.Actor, id int64) (*models.Donation, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error

	ListAvailable(ctx context.Context) ([]*models.Donation, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Donation, error)
	ListByDonor(ctx context.Context, donorID int64) ([]*models.Donation, error)
	ListByReceiver(ctx context.Context, receiverID int64) ([]*models.Donation, error)
	ListVolunteerTasks(ctx context.Context, volunteerID int64) ([]*models.Donation, error)

	ChatParties(ctx context.Context, actor models.Actor, id int64) (*ChatParties, error)
}

type donationService struct {
	stg      storage.IDonationStorage
	users    storage.IUserStorage
	notifier NotificationService
	points   PointsService
	geocoder geocode.Geocoder
	log      logger.ILogger

	rules         lifecycle
	defaultExpiry time.Duration
	fallback      models.Location
	now           func() time.Time
}

func NewDonationService(stg storage.IStorage, log logger.ILogger, notifier NotificationService, points PointsService, opts Options) DonationService {
	opts = opts.withDefaults()
	return &donationService{
		stg:           stg.Donation(),
		users:         stg.User(),
		notifier:      notifier,
		points:        points,
		geocoder:      opts.Geocoder,
		log:           log,
		rules:         lifecycle{selfDeliveryPolicy: opts.SelfDeliveryPolicy},
		defaultExpiry: opts.DefaultExpiry,
		fallback:      opts.FallbackLocation,
		now:           opts.Now,
	}
}

func (s *donationService) Create(ctx context.Context, actor models.Actor, payload models.DonationPayload) (*models.Donation, error) {
	if actor.Role != models.RoleDonor {
		return nil, errs.Forbidden("only donors can create donations")
	}
	now := s.now()
	if err := validatePayload(payload); err != nil {
		return nil, err
	}
	expiry, err := s.expiryFor(payload, now)
	if err != nil {
		return nil, err
	}
	loc, err := s.resolveLocation(ctx, actor.ID, payload)
	if err != nil {
		return nil, err
	}

	d, err := s.stg.Create(ctx, &models.Donation{
		DonorID:     actor.ID,
		FoodType:    payload.FoodType,
		Description: payload.Description,
		Quantity:    payload.Quantity,
		Location:    loc,
		Status:      models.StatusAvailable,
		ExpiryTime:  expiry,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition("create", "ok")
	s.log.Info("donation created",
		logger.Int64("donation_id", d.ID),
		logger.Int64("donor_id", d.DonorID),
		logger.Int("quantity", d.Quantity),
	)
	return d, nil
}

func (s *donationService) Update(ctx context.Context, actor models.Actor, id int64, payload models.DonationPayload) (*models.Donation, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.rules.checkOwnedAvailable(d, actor, TransitionUpdate); err != nil {
		return nil, s.record(TransitionUpdate, err)
	}
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	now := s.now()
	expiry := d.ExpiryTime
	if payload.ExpiryTime != nil || payload.ExpiryHours > 0 {
		if expiry, err = s.expiryFor(payload, now); err != nil {
			return nil, err
		}
	}
	loc := d.Location
	if !payload.Location.IsZero() || payload.Address != "" {
		if loc, err = s.resolveLocation(ctx, actor.ID, payload); err != nil {
			return nil, err
		}
	}

	d.FoodType = payload.FoodType
	d.Description = payload.Description
	d.Quantity = payload.Quantity
	d.Location = loc
	d.ExpiryTime = expiry

	updated, err := s.stg.UpdateDetails(ctx, d)
	if err != nil {
		return nil, s.record(TransitionUpdate, s.writeErr(err, id, TransitionUpdate))
	}
	s.record(TransitionUpdate, nil)
	return updated, nil
}

func (s *donationService) Get(ctx context.Context, id int64) (*models.Donation, error) {
	return s.load(ctx, id)
}

func (s *donationService) Claim(ctx context.Context, actor models.Actor, id int64, deliveryNeeded bool) (*models.Donation, error) {
	return s.apply(ctx, TransitionClaim, actor, id, func(d *models.Donation) (models.StatusChange, error) {
		return s.rules.planClaim(d, actor, deliveryNeeded, s.now())
	})
}

func (s *donationService) Accept(ctx context.Context, actor models.Actor, id int64) (*models.Donation, error) {
	return s.apply(ctx, TransitionAccept, actor, id, func(d *models.Donation) (models.StatusChange, error) {
		return s.rules.planAccept(d, actor)
	})
}

func (s *donationService) Deliver(ctx context.Context, actor models.Actor, id int64) (*models.Donation, error) {
	return s.apply(ctx, TransitionDeliver, actor, id, func(d *models.Donation) (models.StatusChange, error) {
		return s.rules.planDeliver(d, actor)
	})
}

func (s *donationService) Cancel(ctx context.Context, actor models.Actor, id int64) (*models.Donation, error) {
	return s.apply(ctx, TransitionCancel, actor, id, func(d *models.Donation) (models.StatusChange, error) {
		return s.rules.planCancel(d, actor)
	})
}

func (s *donationService) Delete(ctx context.Context, actor models.Actor, id int64) error {
	d, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.rules.checkOwnedAvailable(d, actor, TransitionDelete); err != nil {
		return s.record(TransitionDelete, err)
	}
	if err := s.stg.Delete(ctx, id); err != nil {
		return s.record(TransitionDelete, s.writeErr(err, id, TransitionDelete))
	}
	s.record(TransitionDelete, nil)
	s.log.Info("donation deleted", logger.Int64("donation_id", id), logger.Int64("donor_id", actor.ID))
	return nil
}

func (s *donationService) ListAvailable(ctx context.Context) ([]*models.Donation, error) {
	now := s.now()
	s.expireStale(ctx, now)
	return nonNil(s.stg.GetAvailable(ctx, now))
}

func (s *donationService) ListRecent(ctx context.Context, limit int) ([]*models.Donation, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	s.expireStale(ctx, s.now())
	return nonNil(s.stg.GetRecent(ctx, limit))
}

func (s *donationService) ListByDonor(ctx context.Context, donorID int64) ([]*models.Donation, error) {
	s.expireStale(ctx, s.now())
	return nonNil(s.stg.GetDonorDonations(ctx, donorID))
}

func (s *donationService) ListByReceiver(ctx context.Context, receiverID int64) ([]*models.Donation, error) {
	return nonNil(s.stg.GetReceiverDonations(ctx, receiverID))
}

func (s *donationService) ListVolunteerTasks(ctx context.Context, volunteerID int64) ([]*models.Donation, error) {
	return nonNil(s.stg.GetVolunteerTasks(ctx, volunteerID))
}

func (s *donationService) ChatParties(ctx context.Context, actor models.Actor, id int64) (*ChatParties, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	parties := &ChatParties{
		DonationID:  d.ID,
		DonorID:     d.DonorID,
		ReceiverID:  d.ReceiverID,
		VolunteerID: d.VolunteerID,
	}
	thirdParty := d.VolunteerID != nil && !d.SelfDelivery()

	switch {
	case actor.ID == d.DonorID:
		if thirdParty {
			parties.Counterparts = []int64{*d.VolunteerID}
		} else if d.ReceiverID != nil {
			parties.Counterparts = []int64{*d.ReceiverID}
		}
	case isReceiver(d, actor.ID):
		if thirdParty {
			parties.Counterparts = []int64{*d.VolunteerID}
		} else {
			parties.Counterparts = []int64{d.DonorID}
		}
	case thirdParty && *d.VolunteerID == actor.ID:
		parties.Counterparts = []int64{d.DonorID}
		if d.ReceiverID != nil {
			parties.Counterparts = append(parties.Counterparts, *d.ReceiverID)
		}
	default:
		return nil, errs.Forbidden("not a participant of this donation")
	}
	if parties.Counterparts == nil {
		parties.Counterparts = []int64{}
	}
	return parties, nil
}

// apply runs one guarded transition: load with lazy expiry, plan against the
// snapshot, compare-and-set, then fire side effects that never fail the call.
func (s *donationService) apply(
	ctx context.Context,
	t Transition,
	actor models.Actor,
	id int64,
	plan func(*models.Donation) (models.StatusChange, error),
) (*models.Donation, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	change, err := plan(d)
	if err != nil {
		return nil, s.record(t, err)
	}

	updated, err := s.stg.Transition(ctx, id, change)
	if err != nil {
		return nil, s.record(t, s.writeErr(err, id, t))
	}

	s.record(t, nil)
	s.log.Info("donation transitioned",
		logger.Int64("donation_id", id),
		logger.Int64("actor_id", actor.ID),
		logger.String("transition", string(t)),
		logger.String("from", string(change.From)),
		logger.String("to", string(updated.Status)),
	)
	// The transition is committed; side effects must not die with the caller.
	s.afterTransition(context.WithoutCancel(ctx), t, actor, d, updated)
	return updated, nil
}

// afterTransition notifies interested parties and credits points. Failures
// are logged; the transition has already been committed.
func (s *donationService) afterTransition(ctx context.Context, t Transition, actor models.Actor, before, d *models.Donation) {
	id := d.ID
	label := fmt.Sprintf("#%d (%s)", d.ID, d.FoodType)

	notify := func(recipient *int64, message string) {
		if recipient == nil || *recipient == actor.ID {
			return
		}
		if _, err := s.notifier.Notify(ctx, *recipient, &id, message); err != nil {
			s.log.Error("notification failed",
				logger.Int64("donation_id", id),
				logger.Int64("recipient_id", *recipient),
				logger.Error(err),
			)
		}
	}
	donor := &d.DonorID

	switch t {
	case TransitionClaim:
		mode := "will be collected by the receiver"
		if d.DeliveryNeeded {
			mode = "is waiting for a volunteer"
		}
		notify(donor, fmt.Sprintf("Your donation %s was claimed and %s.", label, mode))

	case TransitionAccept:
		if d.SelfDelivery() {
			notify(d.ReceiverID, fmt.Sprintf("The donor will deliver donation %s to you.", label))
		} else {
			msg := fmt.Sprintf("A volunteer accepted the delivery of donation %s.", label)
			notify(donor, msg)
			notify(d.ReceiverID, msg)
		}

	case TransitionDeliver:
		msg := fmt.Sprintf("Donation %s was delivered.", label)
		notify(donor, msg)
		notify(d.ReceiverID, msg)
		if err := s.points.AwardDelivery(ctx, d); err != nil {
			s.log.Error("points award failed", logger.Int64("donation_id", id), logger.Error(err))
		}

	case TransitionCancel:
		notify(before.ReceiverID, fmt.Sprintf("Donation %s you claimed was cancelled by the donor.", label))
	}
}

// load fetches a donation and applies lazy expiry to it.
func (s *donationService) load(ctx context.Context, id int64) (*models.Donation, error) {
	d, err := s.stg.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "donation", strconv.FormatInt(id, 10))
	}
	if !d.Expired(s.now()) {
		return d, nil
	}

	expired, err := s.stg.Transition(ctx, id, models.StatusChange{From: models.StatusAvailable, To: models.StatusCancelled})
	switch {
	case err == nil:
		s.record(TransitionExpire, nil)
		s.log.Info("donation expired", logger.Int64("donation_id", id))
		return expired, nil
	case errors.Is(err, storage.ErrStale):
		// Someone else moved it on; read what they wrote.
		d, err = s.stg.GetByID(ctx, id)
		if err != nil {
			return nil, notFound(err, "donation", strconv.FormatInt(id, 10))
		}
		return d, nil
	default:
		return nil, notFound(err, "donation", strconv.FormatInt(id, 10))
	}
}

func (s *donationService) expireStale(ctx context.Context, now time.Time) {
	n, err := s.stg.ExpireStale(ctx, now)
	if err != nil {
		s.log.Error("expire stale donations failed", logger.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("donations expired", logger.Int64("count", n))
	}
}

// writeErr maps a failed conditional write into the error taxonomy.
func (s *donationService) writeErr(err error, id int64, t Transition) error {
	switch {
	case errors.Is(err, storage.ErrStale):
		return errs.Conflict(string(t))
	case errors.Is(err, storage.ErrNotFound):
		return errs.NewNotFoundError("donation", strconv.FormatInt(id, 10))
	}
	return err
}

func (s *donationService) record(t Transition, err error) error {
	outcome := "ok"
	switch {
	case err == nil:
	case errs.IsConflict(err):
		outcome = "conflict"
	case errs.IsInvalidState(err):
		outcome = "invalid_state"
	case errs.IsForbidden(err):
		outcome = "forbidden"
	case errs.IsNotFound(err):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.RecordTransition(string(t), outcome)
	return err
}

func (s *donationService) expiryFor(payload models.DonationPayload, now time.Time) (time.Time, error) {
	if payload.ExpiryTime != nil {
		if !payload.ExpiryTime.After(now) {
			return time.Time{}, errs.NewValidationError("expiry_time", "must be in the future")
		}
		return payload.ExpiryTime.UTC(), nil
	}
	if payload.ExpiryHours > 0 {
		return now.Add(time.Duration(payload.ExpiryHours) * time.Hour).UTC(), nil
	}
	return now.Add(s.defaultExpiry).UTC(), nil
}

// resolveLocation prefers an explicit location, then the geocoder, then the
// donor's profile, then the configured fallback. Geocoding never fails creation.
func (s *donationService) resolveLocation(ctx context.Context, donorID int64, payload models.DonationPayload) (models.Location, error) {
	if !payload.Location.IsZero() {
		loc := *payload.Location
		if loc.Address == "" {
			loc.Address = payload.Address
		}
		if loc.Address == "" {
			loc.Address = s.reverse(ctx, loc.Lat, loc.Lng)
		}
		if err := validateStruct(loc); err != nil {
			return models.Location{}, err
		}
		return loc, nil
	}
	if payload.Address == "" {
		return models.Location{}, errs.NewValidationError("location", "is required")
	}

	if s.geocoder != nil {
		results, err := s.geocoder.Search(ctx, payload.Address)
		if err == nil && len(results) > 0 {
			loc := results[0]
			loc.Address = payload.Address
			return loc, nil
		}
		s.log.Warning("geocoding failed, falling back",
			logger.String("address", payload.Address),
			logger.Any("error", err),
		)
	}

	if donor, err := s.users.GetByID(ctx, donorID); err == nil && donor.Location != nil {
		return *donor.Location, nil
	}

	loc := s.fallback
	loc.Address = payload.Address + " (Approx)"
	return loc, nil
}

// reverse names a bare map pin, falling back to its coordinates.
func (s *donationService) reverse(ctx context.Context, lat, lng float64) string {
	if s.geocoder != nil {
		address, err := s.geocoder.Reverse(ctx, lat, lng)
		if err == nil && address != "" {
			return address
		}
		s.log.Warning("reverse geocoding failed, using coordinates",
			logger.Float64("lat", lat),
			logger.Float64("lng", lng),
			logger.Any("error", err),
		)
	}
	return fmt.Sprintf("%.5f,%.5f (Approx)", lat, lng)
}

func validatePayload(payload models.DonationPayload) error {
	if payload.Quantity <= 0 {
		return errs.NewValidationError("quantity", "must be a positive number of servings")
	}
	// The location is checked once it has been resolved.
	payload.Location = nil
	return validateStruct(payload)
}

func nonNil(list []*models.Donation, err error) ([]*models.Donation, error) {
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Donation{}
	}
	return list, nil
}
