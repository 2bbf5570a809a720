package logger

import "testing"

func TestMaskEmail(t *testing.T) {
	if got := MaskEmail("jane.doe@example.com"); got != "jan***@example.com" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := MaskEmail("not-an-email"); got != "***" {
		t.Fatalf("unexpected mask for malformed input %q", got)
	}
	if got := MaskEmail(""); got != "" {
		t.Fatalf("expected empty input to stay empty, got %q", got)
	}
}

func TestMaskIP(t *testing.T) {
	if got := MaskIP("192.168.1.100"); got != "192.168.*.*" {
		t.Fatalf("unexpected ipv4 mask %q", got)
	}
	if got := MaskIP("2001:0db8:85a3:0000:0000:8a2e:0370:7334"); got != "2001:0db8:85a3:0000:*:*:*:*" {
		t.Fatalf("unexpected ipv6 mask %q", got)
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken("eyJhbGciOiJIUzI1NiJ9.payload.sig"); got != "eyJh***.sig" {
		t.Fatalf("unexpected token mask %q", got)
	}
	if got := MaskToken("short"); got != "***" {
		t.Fatalf("unexpected short token mask %q", got)
	}
}
