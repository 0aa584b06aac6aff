package tier

import "testing"

func TestLimits(t *testing.T) {
	cases := []struct {
		tier  Tier
		limit int
	}{
		{Free, 100},
		{Pro, 10000},
		{Enterprise, EnterpriseLimit},
	}
	for _, tc := range cases {
		limit, err := Limit(tc.tier)
		if err != nil {
			t.Fatalf("limit(%s): %v", tc.tier, err)
		}
		if limit != tc.limit {
			t.Fatalf("limit(%s) = %d, want %d", tc.tier, limit, tc.limit)
		}
	}
}

func TestInvalidTier(t *testing.T) {
	if Validate("platinum") {
		t.Fatal("expected platinum to be invalid")
	}
	if _, err := Limit("platinum"); err != ErrInvalidTier {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
	if _, err := Price("platinum"); err != ErrInvalidTier {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
	if _, err := Compare(Free, "platinum"); err != ErrInvalidTier {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
}

func TestUpgradeDowngradeSymmetry(t *testing.T) {
	tiers := []Tier{Free, Pro, Enterprise}
	for _, a := range tiers {
		for _, b := range tiers {
			up, err := IsUpgrade(a, b)
			if err != nil {
				t.Fatalf("IsUpgrade(%s,%s): %v", a, b, err)
			}
			down, err := IsDowngrade(b, a)
			if err != nil {
				t.Fatalf("IsDowngrade(%s,%s): %v", b, a, err)
			}
			if up != down {
				t.Fatalf("IsUpgrade(%s,%s)=%v but IsDowngrade(%s,%s)=%v", a, b, up, b, a, down)
			}
			if a == b && up {
				t.Fatalf("same tier %s must not be an upgrade", a)
			}
		}
	}
}

func TestPrice(t *testing.T) {
	price, err := Price(Pro)
	if err != nil {
		t.Fatalf("price(pro): %v", err)
	}
	if price == nil || *price != 49.90 {
		t.Fatalf("unexpected pro price: %v", price)
	}

	price, err = Price(Enterprise)
	if err != nil {
		t.Fatalf("price(enterprise): %v", err)
	}
	if price != nil {
		t.Fatalf("enterprise price should be negotiated (nil), got %v", *price)
	}
}
