package units

import (
	"testing"
	"time"
)

func TestIsTimezoneValid(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		expected bool
	}{
		{"valid UTC", "UTC", true},
		{"valid Europe/London", "Europe/London", true},
		{"invalid", "Invalid/Timezone", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := IsTimezoneValid(tt.timezone)
			if res != tt.expected {
				t.Errorf("IsTimezoneValid(%s) = %v, want %v", tt.timezone, res, tt.expected)
			}
		})
	}
}

func TestLoadLocation(t *testing.T) {
	for _, name := range []string{"", "Local"} {
		loc, err := LoadLocation(name)
		if err != nil {
			t.Fatalf("LoadLocation(%q) error: %v", name, err)
		}
		if loc != time.Local {
			t.Errorf("LoadLocation(%q) = %v, want Local", name, loc)
		}
	}

	loc, err := LoadLocation("UTC")
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("LoadLocation(UTC) = %v, %v", loc, err)
	}

	if _, err := LoadLocation("Nowhere/Special"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
