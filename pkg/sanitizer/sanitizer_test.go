package sanitizer

import "testing"

func TestSanitizeSlotNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{" a1 ", "A1"},
		{"b--02", "B-02"},
		{"c 3", "C3"},
		{"-d4-", "D4"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeSlotNumber(tt.in); got != tt.want {
			t.Errorf("SanitizeSlotNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizePlate(t *testing.T) {
	if got := SanitizePlate(" rab 123-c "); got != "RAB123C" {
		t.Errorf("SanitizePlate() = %q", got)
	}
}

func TestSanitizeCategory(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Car ", "car"},
		{"MEDIUM", "medium"},
		{"Light   Truck", "light truck"},
	}
	for _, tt := range tests {
		if got := SanitizeCategory(tt.in); got != tt.want {
			t.Errorf("SanitizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{" No \t space\n left ", "No space left"},
	}
	for _, tt := range tests {
		if got := TrimAndNormalize(tt.in); got != tt.want {
			t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
