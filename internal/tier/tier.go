// Package tier defines the freemium plan levels and their message limits.
package tier

import "errors"

type Tier string

const (
	Free       Tier = "free"
	Pro        Tier = "pro"
	Enterprise Tier = "enterprise"
)

// EnterpriseLimit is a sentinel treated as effectively unlimited. It is not
// infinity; callers must not do overflow-prone arithmetic near it.
const EnterpriseLimit = 1 << 31

var ErrInvalidTier = errors.New("invalid_tier")

var limits = map[Tier]int{
	Free:       100,
	Pro:        10000,
	Enterprise: EnterpriseLimit,
}

var prices = map[Tier]float64{
	Free: 0,
	Pro:  49.90,
}

var order = map[Tier]int{
	Free:       0,
	Pro:        1,
	Enterprise: 2,
}

// Validate reports whether t is one of the known tiers.
func Validate(t Tier) bool {
	_, ok := order[t]
	return ok
}

// Limit returns the monthly message limit for t.
func Limit(t Tier) (int, error) {
	limit, ok := limits[t]
	if !ok {
		return 0, ErrInvalidTier
	}
	return limit, nil
}

// Price returns the monthly price for t. Enterprise pricing is negotiated,
// so it has no fixed price and nil is returned.
func Price(t Tier) (*float64, error) {
	if !Validate(t) {
		return nil, ErrInvalidTier
	}
	price, ok := prices[t]
	if !ok {
		return nil, nil
	}
	return &price, nil
}

// Compare orders tiers by the fixed total order Free < Pro < Enterprise.
// It returns -1 when a < b, 0 when equal, 1 when a > b.
func Compare(a, b Tier) (int, error) {
	ra, ok := order[a]
	if !ok {
		return 0, ErrInvalidTier
	}
	rb, ok := order[b]
	if !ok {
		return 0, ErrInvalidTier
	}
	switch {
	case ra < rb:
		return -1, nil
	case ra > rb:
		return 1, nil
	default:
		return 0, nil
	}
}

func IsUpgrade(from, to Tier) (bool, error) {
	cmp, err := Compare(from, to)
	if err != nil {
		return false, err
	}
	return cmp < 0, nil
}

func IsDowngrade(from, to Tier) (bool, error) {
	cmp, err := Compare(from, to)
	if err != nil {
		return false, err
	}
	return cmp > 0, nil
}
