package domain

import (
	"strings"
	"time"
)

// Branch is the aggregate recorded by the registry. Equality and hashing are
// by ID alone — two Branch values with the same ID represent the same
// branch even if other fields diverge across a read.
type Branch struct {
	ID           BranchId
	Location     GeoPoint
	Type         BranchType
	Status       BranchStatus
	Name         string
	Address      string
	ContactPhone string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewBranch constructs a Branch with status ACTIVE and both timestamps set
// to now. Name and address are trimmed.
func NewBranch(id BranchId, loc GeoPoint, typ BranchType, name, address, phone string, now time.Time) Branch {
	return Branch{
		ID:           id,
		Location:     loc,
		Type:         typ,
		Status:       StatusActive,
		Name:         strings.TrimSpace(name),
		Address:      strings.TrimSpace(address),
		ContactPhone: strings.TrimSpace(phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Operational reports whether the branch should be considered for proximity
// queries and business-rule nearby scans.
func (b Branch) Operational() bool {
	return b.Status.Operational()
}

// SupportsService maps a service name (case-insensitive) to a predicate
// over the branch's type capability flags. A non-operational branch
// supports no service.
func (b Branch) SupportsService(service string) bool {
	if !b.Operational() {
		return false
	}

	caps := b.Type.Capabilities()
	switch strings.ToLower(service) {
	case "account_opening", "loan_application", "investment_consultation":
		return caps.FullServices && caps.PersonalBanker
	case "cash_withdrawal", "balance_inquiry", "transfer":
		return true
	case "safe_deposit", "currency_exchange":
		return caps.FullServices
	case "after_hours_banking":
		return caps.TwentyFourHour
	default:
		return caps.FullServices
	}
}

// UpdateInfo mutates name, address, and phone in place, trimming each, and
// bumps UpdatedAt. It never touches ID, Location, Type, or Status.
func (b *Branch) UpdateInfo(name, address, phone string, now time.Time) {
	b.Name = strings.TrimSpace(name)
	b.Address = strings.TrimSpace(address)
	b.ContactPhone = strings.TrimSpace(phone)
	b.UpdatedAt = now
}

// TransitionTo validates and applies a status change, bumping UpdatedAt on
// success. It does not itself enforce the ACTIVE->PERMANENTLY_CLOSED special
// case or the PERMANENTLY_CLOSED terminal case beyond what
// BranchStatus.CanTransitionTo already encodes — callers needing the
// RULE_VIOLATED{ILLEGAL_TRANSITION} error tag should use
// internal/validate.ValidateStatusTransition instead of calling this
// directly from the hot path.
func (b *Branch) TransitionTo(target BranchStatus, now time.Time) bool {
	if !b.Status.CanTransitionTo(target) {
		return false
	}
	b.Status = target
	b.UpdatedAt = now
	return true
}
