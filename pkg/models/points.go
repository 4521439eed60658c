package models

import "time"

type AwardReason string

const (
	// ReasonDelivery credits the volunteer who completed a delivery.
	ReasonDelivery AwardReason = "delivery"
	// ReasonDonation credits the donor of a completed donation.
	ReasonDonation AwardReason = "donation"
)

type PointAward struct {
	UserID     int64       `json:"user_id"`
	DonationID int64       `json:"donation_id"`
	Reason     AwardReason `json:"reason"`
	Amount     int64       `json:"amount"`
	CreatedAt  time.Time   `json:"created_at"`
}
