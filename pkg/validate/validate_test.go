package validate

import "testing"

type sample struct {
	Name  string  `json:"name" validate:"required"`
	Ratio float64 `json:"ratio" validate:"gte=0,lte=1"`
	Mode  string  `yaml:"mode" validate:"oneof=fast slow"`
}

func TestStructValid(t *testing.T) {
	if vs := Struct(sample{Name: "x", Ratio: 0.5, Mode: "fast"}); vs != nil {
		t.Fatalf("expected no violations, got %+v", vs)
	}
}

func TestStructViolations(t *testing.T) {
	vs := Struct(sample{Ratio: 1.5, Mode: "medium"})
	if len(vs) != 3 {
		t.Fatalf("expected 3 violations, got %+v", vs)
	}
	want := []struct{ field, tag string }{
		{"name", "required"},
		{"ratio", "lte"},
		{"mode", "oneof"},
	}
	for i, w := range want {
		if vs[i].Field != w.field || vs[i].Tag != w.tag {
			t.Fatalf("violation %d = %+v, want field=%s tag=%s", i, vs[i], w.field, w.tag)
		}
	}
	if vs[1].Message != "ratio must be less than or equal to 1" {
		t.Fatalf("unexpected message %q", vs[1].Message)
	}
}

func TestJoin(t *testing.T) {
	got := Join([]FieldViolation{{Message: "a"}, {Message: "b"}})
	if got != "a; b" {
		t.Fatalf("Join = %q", got)
	}
}

type pathQuery struct {
	Ticker string `param:"ticker" json:"-" validate:"required"`
	Limit  int    `query:"limit" json:"-" validate:"gte=1"`
}

func TestStructUsesParamAndQueryNames(t *testing.T) {
	vs := Struct(pathQuery{})
	if len(vs) != 2 || vs[0].Field != "ticker" || vs[1].Field != "limit" {
		t.Fatalf("violations = %+v", vs)
	}
}
