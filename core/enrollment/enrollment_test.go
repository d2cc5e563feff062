package enrollment

import "testing"

func TestStatusPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		incoming Status
		stored   Status
		want     bool
	}{
		{"completed beats pending", Completed, Pending, true},
		{"refunded beats completed", Refunded, Completed, true},
		{"refunded beats pending", Refunded, Pending, true},
		{"failed beats pending", Failed, Pending, true},
		{"duplicate completed is a no-op", Completed, Completed, false},
		{"duplicate refunded is a no-op", Refunded, Refunded, false},
		{"pending never downgrades completed", Pending, Completed, false},
		{"pending never downgrades failed", Pending, Failed, false},
		{"failed never downgrades completed", Failed, Completed, false},
		{"failed never downgrades refunded", Failed, Refunded, false},
		{"completed after failure wins", Completed, Failed, true},
		{"completed never downgrades refunded", Completed, Refunded, false},
	}

	for _, tt := range tests {
		if got := tt.incoming.Overrides(tt.stored); got != tt.want {
			t.Errorf("%s: %s.Overrides(%s) = %v, want %v", tt.name, tt.incoming, tt.stored, got, tt.want)
		}
	}
}

func TestStatusRankUnknown(t *testing.T) {
	if Status("BOGUS").Overrides(Pending) {
		t.Fatal("an unknown status must never override a stored one")
	}
}
