package domain

// BranchType is the closed set of branch service tiers.
type BranchType string

const (
	Traditional BranchType = "TRADITIONAL"
	Digital     BranchType = "DIGITAL"
	Premium     BranchType = "PREMIUM"
	Express     BranchType = "EXPRESS"
	ATMOnly     BranchType = "ATM_ONLY"
)

// Capabilities describes the service flags and ranking priority carried by a
// BranchType.
type Capabilities struct {
	FullServices   bool
	PersonalBanker bool
	TwentyFourHour bool
	Priority       int
}

var branchTypeCapabilities = map[BranchType]Capabilities{
	Premium:     {FullServices: true, PersonalBanker: true, TwentyFourHour: false, Priority: 5},
	Traditional: {FullServices: true, PersonalBanker: true, TwentyFourHour: false, Priority: 4},
	Digital:     {FullServices: true, PersonalBanker: false, TwentyFourHour: true, Priority: 3},
	Express:     {FullServices: false, PersonalBanker: false, TwentyFourHour: false, Priority: 2},
	ATMOnly:     {FullServices: false, PersonalBanker: false, TwentyFourHour: true, Priority: 1},
}

// Valid reports whether bt is one of the closed enumeration values.
func (bt BranchType) Valid() bool {
	_, ok := branchTypeCapabilities[bt]
	return ok
}

// Capabilities returns the capability flags and priority score for bt. Callers
// must check Valid() first; an unknown BranchType returns the zero value.
func (bt BranchType) Capabilities() Capabilities {
	return branchTypeCapabilities[bt]
}

// Priority returns bt's tiebreak priority score (1..5, higher wins).
func (bt BranchType) Priority() int {
	return branchTypeCapabilities[bt].Priority
}

// AllBranchTypes lists every valid BranchType value.
func AllBranchTypes() []BranchType {
	return []BranchType{Traditional, Digital, Premium, Express, ATMOnly}
}
