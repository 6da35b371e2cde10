package version

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    SpecVersion
		wantErr bool
	}{
		{"1.0", SpecVersion{1, 0}, false},
		{"2.15", SpecVersion{2, 15}, false},
		{"1", SpecVersion{}, true},
		{"1.0.0", SpecVersion{}, true},
		{"a.b", SpecVersion{}, true},
		{"", SpecVersion{}, true},
		{".5", SpecVersion{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	if !(SpecVersion{1, 0}).Compatible(SpecVersion{1, 7}) {
		t.Error("same major must be compatible")
	}
	if (SpecVersion{1, 0}).Compatible(SpecVersion{2, 0}) {
		t.Error("different major must be incompatible")
	}
}

func TestCurrent(t *testing.T) {
	if got := Current.String(); got != "1.0" {
		t.Errorf("Current.String() = %q", got)
	}

	parsed, err := Parse(Current.String())
	if err != nil || parsed != Current {
		t.Errorf("Parse(Current) = %v, %v", parsed, err)
	}
}

func TestALPN(t *testing.T) {
	if got := (SpecVersion{Major: 1}).ALPN(); got != "uplink/1" {
		t.Errorf("ALPN() = %q", got)
	}

	major, err := MajorFromALPN("uplink/1")
	if err != nil || major != 1 {
		t.Errorf("MajorFromALPN(uplink/1) = %d, %v", major, err)
	}

	if _, err := MajorFromALPN("h2"); err == nil {
		t.Error("expected error for foreign ALPN protocol")
	}
	if _, err := MajorFromALPN("uplink/"); err == nil {
		t.Error("expected error for empty major")
	}

	protos := SupportedALPNProtocols()
	if len(protos) != 1 || protos[0] != Current.ALPN() {
		t.Errorf("SupportedALPNProtocols() = %v", protos)
	}
}
