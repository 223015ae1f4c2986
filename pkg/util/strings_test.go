package util

import (
	"reflect"
	"testing"
)

func TestParseIntDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"", 7, 7},
		{" 42 ", 7, 42},
		{"-3", 7, -3},
		{"4x", 7, 7},
	}
	for _, c := range cases {
		if got := ParseIntDefault(c.in, c.def); got != c.want {
			t.Fatalf("ParseIntDefault(%q, %d) = %d, want %d", c.in, c.def, got, c.want)
		}
	}
}

func TestParseBoolDefault(t *testing.T) {
	if !ParseBoolDefault("true", false) || !ParseBoolDefault("1", false) {
		t.Fatalf("expected true")
	}
	if ParseBoolDefault("FALSE", true) {
		t.Fatalf("expected false")
	}
	if !ParseBoolDefault("maybe", true) {
		t.Fatalf("expected default")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a, ,b ,,c")
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected %v", got)
	}
	if SplitList(" , ") != nil {
		t.Fatalf("expected nil for blanks")
	}
}
