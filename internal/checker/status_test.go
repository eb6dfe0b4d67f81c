package checker

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		code int
		spec StatusSpec
		want bool
	}{
		{"scalar equal", 200, Code(200), true},
		{"scalar differs", 201, Code(200), false},
		{"list hit", 200, AnyOf(Code(200), Code(201)), true},
		{"range miss", 203, Range(200, 202), false},
		{"range low bound", 200, Range(200, 202), true},
		{"range high bound", 202, Range(200, 202), true},
		{"list with range", 204, AnyOf(Code(200), Range(203, 204)), true},
		{"range then scalar", 205, AnyOf(Range(200, 202), Code(205)), true},
		{"empty list", 200, AnyOf(), false},
		{"unset", 200, StatusSpec{}, false},
		{"nested", 404, AnyOf(Code(200), AnyOf(Range(300, 302), AnyOf(AnyOf(Code(404))))), true},
		{"nested miss", 405, AnyOf(Code(200), AnyOf(Range(300, 302), AnyOf(AnyOf(Code(404))))), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.code, tt.spec); got != tt.want {
				t.Errorf("Matches(%d, %s) = %v, want %v", tt.code, tt.spec, got, tt.want)
			}
		})
	}
}

// randomSpec generates arbitrarily nested specs for testing/quick.
type randomSpec struct {
	Spec StatusSpec
}

func (randomSpec) Generate(r *rand.Rand, size int) reflect.Value {
	return reflect.ValueOf(randomSpec{Spec: genSpec(r, 4)})
}

func genSpec(r *rand.Rand, depth int) StatusSpec {
	switch n := r.Intn(3); {
	case n == 0 || depth == 0 && n == 2:
		return Code(100 + r.Intn(500))
	case n == 1:
		lo := 100 + r.Intn(500)
		return Range(lo, lo+r.Intn(50))
	default:
		elems := make([]StatusSpec, r.Intn(5))
		for i := range elems {
			elems[i] = genSpec(r, depth-1)
		}
		return AnyOf(elems...)
	}
}

func leaves(s StatusSpec) []StatusSpec {
	if s.kind != specAny {
		return []StatusSpec{s}
	}
	var out []StatusSpec
	for _, e := range s.elems {
		out = append(out, leaves(e)...)
	}
	return out
}

func TestMatchesIsDisjunctionOfLeaves(t *testing.T) {
	property := func(rs randomSpec, raw uint16) bool {
		code := 100 + int(raw)%500
		want := false
		for _, l := range leaves(rs.Spec) {
			if Matches(code, l) {
				want = true
			}
		}
		return Matches(code, rs.Spec) == want
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 2000}); err != nil {
		t.Fatal(err)
	}
}

func TestStatusSpecValidate(t *testing.T) {
	valid := []StatusSpec{Code(0), Code(200), Range(200, 200), AnyOf(), AnyOf(Code(200), AnyOf(Range(300, 399)))}
	for _, s := range valid {
		if err := s.Validate(); err != nil {
			t.Errorf("%s: unexpected error %v", s, err)
		}
	}

	invalid := []StatusSpec{{}, Code(-1), Range(300, 200), Range(-5, 10), AnyOf(Code(200), StatusSpec{})}
	for _, s := range invalid {
		if err := s.Validate(); !errors.Is(err, ErrInvalidStatusSpec) {
			t.Errorf("%s: expected ErrInvalidStatusSpec, got %v", s, err)
		}
	}
}

func TestParseStatusSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "200", want: "200"},
		{in: " 204 ", want: "204"},
		{in: "200-299", want: "200-299"},
		{in: "200..299", want: "200-299"},
		{in: "2xx", wantErr: true},
		{in: "200-", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseStatusSpec(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseStatusSpec(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatusSpec(%q): %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseStatusSpec(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
