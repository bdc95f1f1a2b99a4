package validators

import "testing"

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "trims", input: "  SAVE10  ", want: "SAVE10"},
		{name: "collapses inner whitespace", input: "red \t  shoes\n", want: "red shoes"},
		{name: "drops control characters", input: "sh\x00o\x07es", want: "shoes"},
		{name: "drops zero width", input: "sho\u200bes", want: "shoes"},
		{name: "truncates on runes", input: "crème brûlée", maxLen: 5, want: "crème"},
		{name: "no trailing space after cut", input: "ab cd", maxLen: 3, want: "ab"},
		{name: "zero limit keeps everything", input: "abcdef", maxLen: 0, want: "abcdef"},
		{name: "invalid utf8 removed", input: "ok\xffay", want: "okay"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeString(tc.input, tc.maxLen); got != tc.want {
				t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, got, tc.want)
			}
		})
	}
}

func TestSanitizeTextKeepsLineBreaks(t *testing.T) {
	got := SanitizeText("  leave at door   \r\nring twice\x00\n\n", 0)
	if got != "leave at door\nring twice" {
		t.Fatalf("unexpected note %q", got)
	}
	if got := SanitizeText("ab\ncd", 4); got != "ab\nc" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
