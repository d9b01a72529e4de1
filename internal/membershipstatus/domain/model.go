package domain

import (
	"time"

	"github.com/smallbiznis/gymdesk/internal/clock"
	memberdomain "github.com/smallbiznis/gymdesk/internal/member/domain"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// ExpiringSoonDays bounds the expiring-soon band for both single-member
// resolution and the registry summary.
const ExpiringSoonDays = 7

// Resolution is derived from the payment ledger on every read and never
// stored. DaysRemaining and ExpiresOn are nil when the member never paid.
type Resolution struct {
	MemberID      int64      `json:"member_id,string"`
	Status        Status     `json:"status"`
	DaysRemaining *int       `json:"days_remaining"`
	ExpiresOn     *time.Time `json:"expires_on"`
	ExpiringSoon  bool       `json:"expiring_soon"`
}

// MemberStatus is one row of the desk's member table: the member and, flattened
// alongside it, the membership resolution as of today.
type MemberStatus struct {
	memberdomain.Member
	Resolution
}

type Summary struct {
	Active       int `json:"active"`
	Expired      int `json:"expired"`
	ExpiringSoon int `json:"expiring_soon"`
	Students     int `json:"students"`
	Total        int `json:"total"`
}

// Derive computes the status of a member whose latest period ends on
// expiresOn, as seen on the civil date today.
func Derive(memberID int64, expiresOn *time.Time, today time.Time) Resolution {
	res := Resolution{MemberID: memberID, Status: StatusExpired}
	if expiresOn == nil {
		return res
	}

	end := clock.DateOf(*expiresOn, time.UTC)
	days := clock.DaysBetween(today, end)
	res.ExpiresOn = &end
	res.DaysRemaining = &days
	if days >= 0 {
		res.Status = StatusActive
		res.ExpiringSoon = days <= ExpiringSoonDays
	}
	return res
}

// Add folds one resolution into the summary.
func (s *Summary) Add(res Resolution, student bool) {
	s.Total++
	if student {
		s.Students++
	}
	if res.Status == StatusActive {
		s.Active++
		if res.ExpiringSoon {
			s.ExpiringSoon++
		}
		return
	}
	s.Expired++
}
