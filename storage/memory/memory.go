// Package memory is a mutex-guarded in-memory implementation of the storage
// interfaces. It backs tests and the "memory" storage driver.
package memory

import (
	"sync"

	"foodshare/storage"
)

type Store struct {
	mu sync.RWMutex

	nextUserID     int64
	nextDonationID int64

	users         map[int64]*userRow
	donations     map[int64]*donationRow
	notifications map[string]*notificationRow
	awards        map[awardKey]*awardRow
	awardOrder    []awardKey
}

func New() *Store {
	return &Store{
		nextUserID:     1,
		nextDonationID: 1,
		users:          make(map[int64]*userRow),
		donations:      make(map[int64]*donationRow),
		notifications:  make(map[string]*notificationRow),
		awards:         make(map[awardKey]*awardRow),
	}
}

func (s *Store) User() storage.IUserStorage                 { return &userRepo{s: s} }
func (s *Store) Donation() storage.IDonationStorage         { return &donationRepo{s: s} }
func (s *Store) Notification() storage.INotificationStorage { return &notificationRepo{s: s} }
func (s *Store) Point() storage.IPointStorage               { return &pointRepo{s: s} }

func (s *Store) Close() {}

// Reset drops every record.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[int64]*userRow)
	s.donations = make(map[int64]*donationRow)
	s.notifications = make(map[string]*notificationRow)
	s.awards = make(map[awardKey]*awardRow)
	s.awardOrder = nil
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
