package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "DSC00001", want: "DSC00001"},
		{name: "separators", input: "trip/day:1*", want: "trip-day-1-"},
		{name: "removed", input: `what?"<>|`, want: "what"},
		{name: "control", input: "a\tb\x00c", want: "abc"},
		{name: "trailing dots", input: "group. ", want: "group"},
		{name: "dot dir", input: "..", want: ""},
		{name: "empty", input: "   ", want: ""},
		{name: "nfc", input: "Café", want: "Café"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeFileName(tc.input); got != tc.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "ILCE-7M3", want: "ilce-7m3"},
		{input: "Canon EOS R5", want: "canon_eos_r5"},
		{input: "  ", want: "unknown"},
		{input: "***", want: "unknown"},
	}
	for _, tc := range tests {
		if got := SanitizeToken(tc.input); got != tc.want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"/photos/DSC00001.ARW": "DSC00001",
		"IMG_0001.tar.gz":      "IMG_0001.tar",
		".hidden":              ".hidden",
		"noext":                "noext",
	}
	for input, want := range tests {
		if got := Stem(input); got != want {
			t.Fatalf("Stem(%q) = %q, want %q", input, got, want)
		}
	}
}
