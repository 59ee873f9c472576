package util

import "testing"

func TestNormalizeWhitespace(t *testing.T) {
	if got := NormalizeWhitespace("  a \n\t b  c "); got != "a b c" {
		t.Fatalf("got %q", got)
	}
}

func TestEqualFoldAny(t *testing.T) {
	labels := []string{"Action", " Slice of Life "}
	if !EqualFoldAny("slice of life", labels) {
		t.Fatalf("expected case-insensitive match")
	}
	if EqualFoldAny("  ", labels) {
		t.Fatalf("blank needle must not match")
	}
	if EqualFoldAny("Drama", labels) {
		t.Fatalf("unexpected match")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```{\"a\":1}```":         `{"a":1}`,
	}
	for in, want := range cases {
		if got := StripCodeFence(in); got != want {
			t.Fatalf("StripCodeFence(%q) = %q want %q", in, got, want)
		}
	}
}
