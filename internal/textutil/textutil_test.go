package textutil

import (
	"math"
	"testing"
)

func TestRuneLengthIgnoresNormalizationForm(t *testing.T) {
	composed := "Ol\u00e1"
	decomposed := "Ola\u0301"
	if RuneLength(composed) != 3 {
		t.Fatalf("RuneLength(composed) = %d, want 3", RuneLength(composed))
	}
	if RuneLength(decomposed) != 3 {
		t.Fatalf("RuneLength(decomposed) = %d, want 3", RuneLength(decomposed))
	}
}

func TestWordsSplitsOnUnicodeWhitespace(t *testing.T) {
	got := Words("  hello world\tagain \n")
	want := []string{"hello", "world", "again"}
	if len(got) != len(want) {
		t.Fatalf("Words() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Words()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if CollapseSpace(" a   b ") != "a b" {
		t.Fatalf("CollapseSpace = %q", CollapseSpace(" a   b "))
	}
}

func TestTokenizeKeepsAccentedLetters(t *testing.T) {
	tokens := Tokenize("Olá, mundo!")
	if len(tokens) != 2 || tokens[0] != "olá" || tokens[1] != "mundo" {
		t.Fatalf("Tokenize() = %q", tokens)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "the quick brown fox", "the quick brown fox", 1, 1},
		{"disjoint", "apple banana cherry", "dog elephant frog", 0, 0},
		{"partial", "the quick brown fox", "the slow brown cat", 0.01, 0.99},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TextSimilarity(tc.a, tc.b)
			if got < tc.min-1e-9 || got > tc.max+1e-9 {
				t.Fatalf("TextSimilarity() = %v, want [%v, %v]", got, tc.min, tc.max)
			}
		})
	}
	if CosineSimilarity(nil, NewFingerprint("hello")) != 0 {
		t.Fatal("nil fingerprint should compare as 0")
	}
	if TextSimilarity("", "") != 1 {
		t.Fatal("two empty texts should be identical")
	}
	if math.IsNaN(TextSimilarity("hello", "")) {
		t.Fatal("unexpected NaN")
	}
}
