package observability

import "testing"

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" x-api-key = abc , broken, =v, k= ,team=careers")
	if len(got) != 2 {
		t.Fatalf("unexpected headers: %v", got)
	}
	if got["x-api-key"] != "abc" || got["team"] != "careers" {
		t.Fatalf("unexpected headers: %v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}

func TestParseRatio(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"", 0.1},
		{"nope", 0.1},
		{"0.5", 0.5},
		{"-1", 0},
		{"4", 1},
	}
	for _, tc := range cases {
		if got := parseRatio(tc.raw, 0.1); got != tc.want {
			t.Fatalf("parseRatio(%q)=%v want %v", tc.raw, got, tc.want)
		}
	}
}
