package guide

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"BBC One HD":            "bbc one",
		"  ESPN   2  ":          "espn 2",
		"Sky Sports (UK) [HD]":  "sky sports uk",
		"CNN Channel":           "cnn",
		"TV 5 Monde":            "5 monde",
		"Discovery":             "discovery",
		"HD":                    "",
		"":                      "",
		"Al-Jazeera!":           "aljazeera",
		"comedy central":        "comedy central",
		"HDTV Test":             "hdtv test",
		"Eurosport SD":          "eurosport",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeName_idempotent(t *testing.T) {
	inputs := []string{
		"BBC One HD",
		"Sky Sports (UK) [HD]",
		"  ESPN   2  ",
		"TV Channel HD SD",
		"discovery science",
	}
	for _, in := range inputs {
		once := NormalizeName(in)
		twice := NormalizeName(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
