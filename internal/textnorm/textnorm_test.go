package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases", input: "Grossmutter", expected: "grossmutter"},
		{name: "trims whitespace", input: "  Onkel \t", expected: "onkel"},
		{name: "strips diacritics", input: "Käse", expected: "kase"},
		{name: "strips diacritics after lowering", input: "ÉLÈVE", expected: "eleve"},
		{name: "handles decomposed input", input: "Zürich", expected: "zurich"},
		{name: "empty input", input: "", expected: ""},
		{name: "whitespace only", input: "   ", expected: ""},
		{name: "keeps inner spacing", input: "Tante Emma", expected: "tante emma"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	a := Normalize("Zürich")
	b := Normalize("Zürich")
	if a != b {
		t.Errorf("expected identical keys for identical input, got %q and %q", a, b)
	}

	// Precomposed and decomposed spellings of the same word must collapse
	// to one key.
	if Normalize("Zürich") != Normalize("Zürich") {
		t.Error("expected composed and decomposed forms to normalize identically")
	}
}
