package subscribe

import "testing"

func TestBuildFingerprintExplicitWins(t *testing.T) {
	rc := RequestContext{Fingerprint: "device-007", UserAgent: "ua"}
	if got := BuildFingerprint(rc); got != "device-007" {
		t.Fatalf("explicit fingerprint must win, got %q", got)
	}
}

func TestBuildFingerprintDeterministic(t *testing.T) {
	rc := RequestContext{
		SourceAddr:     "1.2.3.4:54321",
		UserAgent:      "clash-verge/1.0",
		AcceptLanguage: "zh-CN",
		Hints:          ClientHints{UA: `"Chromium";v="120"`, Platform: "macOS", Mobile: "?0"},
		ProtocolHint:   "vless",
	}
	a := BuildFingerprint(rc)
	b := BuildFingerprint(rc)
	if a != b {
		t.Fatalf("same signals produced different fingerprints: %q vs %q", a, b)
	}
	if a == "" {
		t.Fatal("fingerprint must not be empty")
	}
}

func TestBuildFingerprintMissingFields(t *testing.T) {
	// 全空信号也不能崩，且结果稳定
	a := BuildFingerprint(RequestContext{})
	b := BuildFingerprint(RequestContext{})
	if a != b || a == "" {
		t.Fatalf("empty-signal fingerprint unstable: %q vs %q", a, b)
	}

	// 任一字段变化要影响指纹
	c := BuildFingerprint(RequestContext{UserAgent: "x"})
	if c == a {
		t.Fatal("different signals must produce different fingerprints")
	}
}

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"1.2.3.4:8080":     "1.2.3.4",
		"1.2.3.4":          "1.2.3.4",
		"[2001:db8::1]:80": "2001:db8::1",
		"2001:DB8::1":      "2001:db8::1",
		"  ":               "",
	}
	for in, want := range cases {
		if got := NormalizeAddr(in); got != want {
			t.Errorf("NormalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}
