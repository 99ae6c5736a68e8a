package uri

import "testing"

func TestNormalizePublicID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"-//OASIS//DTD DocBook XML V4.5//EN", "-//OASIS//DTD DocBook XML V4.5//EN"},
		{"  -//A//B  C//EN \n", "-//A//B C//EN"},
		{"a\r\n\tb", "a b"},
		{"", ""},
		{" \t ", ""},
	}
	for _, tt := range tests {
		got := NormalizePublicID(tt.in)
		if got != tt.want {
			t.Fatalf("NormalizePublicID(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := NormalizePublicID(got); again != got {
			t.Fatalf("NormalizePublicID not idempotent for %q: %q", tt.in, again)
		}
	}
}

func TestEncodeURN(t *testing.T) {
	got := EncodeURN("ISO/IEC 10179:1996//DTD DSSSL Architecture//EN")
	want := "urn:publicid:ISO%2FIEC+10179%3A1996:DTD+DSSSL+Architecture:EN"
	if got != want {
		t.Fatalf("EncodeURN() = %q, want %q", got, want)
	}
}

func TestURNRoundTrip(t *testing.T) {
	ids := []string{
		"-//OASIS//DTD DocBook XML V4.5//EN",
		"ISO/IEC 10179:1996//DTD DSSSL Architecture//EN",
		"a:::b",
		"a///b",
		"100% +plus; 'quoted'? #hash",
		"  spaced   out  ",
	}
	for _, id := range ids {
		decoded, ok := DecodeURN(EncodeURN(id))
		if !ok {
			t.Fatalf("DecodeURN(EncodeURN(%q)) not recognized", id)
		}
		if want := NormalizePublicID(id); decoded != want {
			t.Fatalf("DecodeURN(EncodeURN(%q)) = %q, want %q", id, decoded, want)
		}
	}
}

func TestDecodeURNIgnoresOtherSchemes(t *testing.T) {
	if got, ok := DecodeURN("urn:x:y"); ok || got != "urn:x:y" {
		t.Fatalf("DecodeURN(urn:x:y) = %q, %v", got, ok)
	}
	if got, ok := DecodeURN("URN:PUBLICID:a+b"); !ok || got != "a b" {
		t.Fatalf("DecodeURN upper-case prefix = %q, %v", got, ok)
	}
}
