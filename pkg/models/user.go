package models

import "time"

type Role string

const (
	RoleDonor     Role = "donor"
	RoleReceiver  Role = "receiver"
	RoleVolunteer Role = "volunteer"
)

func (r Role) Valid() bool {
	return r == RoleDonor || r == RoleReceiver || r == RoleVolunteer
}

type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Phone      *string   `json:"phone"`
	Role       Role      `json:"role"`
	Points     int64     `json:"points"`
	Location   *Location `json:"location"`
	TelegramID *int64    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Actor is the acting party of a request, supplied by the session layer.
type Actor struct {
	ID   int64
	Role Role
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Points int64  `json:"points"`
}

type Leaderboard struct {
	Volunteers []LeaderboardEntry `json:"volunteers"`
	Donors     []LeaderboardEntry `json:"donors"`
}
