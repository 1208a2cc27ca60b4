package model

import "testing"

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"colon lower", "aa:bb:cc:dd:ee:ff", "aa:bb:cc:dd:ee:ff", true},
		{"colon upper", "AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff", true},
		{"hyphen", "AA-BB-CC-DD-EE-FF", "aa:bb:cc:dd:ee:ff", true},
		{"cisco dotted", "aabb.ccdd.eeff", "aa:bb:cc:dd:ee:ff", true},
		{"bare hex", "AABBCCDDEEFF", "aa:bb:cc:dd:ee:ff", true},
		{"surrounding spaces", "  aa:bb:cc:dd:ee:ff ", "aa:bb:cc:dd:ee:ff", true},
		{"empty", "", "", false},
		{"too short", "aa:bb:cc", "", false},
		{"not hex", "zz:bb:cc:dd:ee:ff", "", false},
		{"eui64", "aa:bb:cc:dd:ee:ff:00:11", "", false},
		{"bare hex wrong length", "aabbccddee", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeMAC(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeMAC(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("NormalizeMAC(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsMAC(t *testing.T) {
	if !IsMAC("00-11-22-33-44-55") {
		t.Error("IsMAC should accept hyphen form")
	}
	if IsMAC("user@example.com") {
		t.Error("IsMAC should reject non-MAC string")
	}
}
