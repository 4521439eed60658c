package models

import "time"

type DonationStatus string

const (
	StatusAvailable DonationStatus = "available"
	StatusClaimed   DonationStatus = "claimed"
	StatusInTransit DonationStatus = "in_transit"
	StatusDelivered DonationStatus = "delivered"
	StatusCancelled DonationStatus = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s DonationStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// HasReceiver reports whether a donation in this status must carry a receiver.
func (s DonationStatus) HasReceiver() bool {
	return s == StatusClaimed || s == StatusInTransit || s == StatusDelivered
}

func (s DonationStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusClaimed, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type Donation struct {
	ID             int64          `json:"id"`
	DonorID        int64          `json:"donor_id"`
	FoodType       string         `json:"food_type"`
	Description    string         `json:"description"`
	Quantity       int            `json:"quantity"`
	Location       Location       `json:"location"`
	Status         DonationStatus `json:"status"`
	ReceiverID     *int64         `json:"receiver_id"`
	DeliveryNeeded bool           `json:"delivery_needed"`
	VolunteerID    *int64         `json:"volunteer_id"`
	ExpiryTime     time.Time      `json:"expiry_time"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SelfDelivery reports whether the donor took the delivery task themselves.
func (d *Donation) SelfDelivery() bool {
	return d.VolunteerID != nil && *d.VolunteerID == d.DonorID
}

// Expired reports whether an available donation has passed its expiry.
func (d *Donation) Expired(now time.Time) bool {
	return d.Status == StatusAvailable && !now.Before(d.ExpiryTime)
}

// DonationPayload holds the informational fields a donor supplies.
type DonationPayload struct {
	FoodType    string     `json:"food_type" validate:"required,max=120"`
	Description string     `json:"description" validate:"max=2000"`
	Quantity    int        `json:"quantity" validate:"gt=0"`
	Location    *Location  `json:"location"`
	Address     string     `json:"address" validate:"max=500"`
	ExpiryTime  *time.Time `json:"expiry_time"`
	ExpiryHours int        `json:"expiry_hours" validate:"gte=0,lte=720"`
}

// StatusChange describes one compare-and-set write on a donation.
// Nil pointer fields are left untouched.
type StatusChange struct {
	From           DonationStatus
	To             DonationStatus
	ReceiverID     *int64
	DeliveryNeeded *bool
	VolunteerID    *int64
	ClearReceiver  bool
	// RequireNoVolunteer rejects the write if a volunteer is already assigned.
	RequireNoVolunteer bool
	// NotExpiredAt rejects the write if the donation expired at that instant.
	NotExpiredAt *time.Time
}
