package orderkey

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

func mustBetween(t *testing.T, prev, next string) string {
	t.Helper()
	k, err := Between(prev, next)
	if err != nil {
		t.Fatalf("Between(%q, %q): %v", prev, next, err)
	}
	if prev != "" && k <= prev {
		t.Fatalf("Between(%q, %q) = %q, not after prev", prev, next, k)
	}
	if next != "" && k >= next {
		t.Fatalf("Between(%q, %q) = %q, not before next", prev, next, k)
	}
	if err := Validate(k); err != nil {
		t.Fatalf("Between(%q, %q) = %q is invalid: %v", prev, next, k, err)
	}
	return k
}

func TestBetween_Boundaries(t *testing.T) {
	cases := []struct {
		prev, next, want string
	}{
		{"", "", "a0"},
		{"a0", "", "a1"},
		{"az", "", "b00"},
		{"", "a0", "Zz"},
		{"", "a0V", "a0"},
		{"a0", "a1", "a0V"},
		{"a0", "a0V", "a0F"},
		{"a0V", "a1", "a0k"},
		{"Zz", "a0", "ZzV"},
	}
	for _, tc := range cases {
		got := mustBetween(t, tc.prev, tc.next)
		if got != tc.want {
			t.Errorf("Between(%q, %q) = %q, want %q", tc.prev, tc.next, got, tc.want)
		}
	}
}

func TestBetween_Deterministic(t *testing.T) {
	a := mustBetween(t, "a3", "a4")
	b := mustBetween(t, "a3", "a4")
	if a != b {
		t.Fatalf("same inputs gave %q and %q", a, b)
	}
}

func TestBetween_InsertionDensity(t *testing.T) {
	seen := make(map[string]struct{})
	prev := "a0"
	for i := 0; i < 50; i++ {
		k := mustBetween(t, prev, "a1")
		if _, dup := seen[k]; dup {
			t.Fatalf("duplicate key %q at step %d", k, i)
		}
		seen[k] = struct{}{}
		prev = k
	}

	next := "a1"
	for i := 0; i < 50; i++ {
		k := mustBetween(t, "a0", next)
		if _, dup := seen[k]; dup {
			t.Fatalf("duplicate key %q at step %d", k, i)
		}
		seen[k] = struct{}{}
		next = k
	}
	if len(seen) != 100 {
		t.Fatalf("got %d distinct keys, want 100", len(seen))
	}
}

func TestBetween_AppendStaysShort(t *testing.T) {
	last := ""
	for i := 0; i < 1000; i++ {
		last = mustBetween(t, last, "")
	}
	if len(last) > 3 {
		t.Errorf("1000 appends produced %q; integer head should keep keys short", last)
	}
}

func TestBetween_PrependManyTimes(t *testing.T) {
	first := ""
	for i := 0; i < 500; i++ {
		first = mustBetween(t, "", first)
	}
}

func TestBetween_RandomInsertionsKeepOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	keys := []string{}
	for i := 0; i < 2000; i++ {
		pos := 0
		if len(keys) > 0 {
			pos = rng.IntN(len(keys) + 1)
		}
		prev, next := "", ""
		if pos > 0 {
			prev = keys[pos-1]
		}
		if pos < len(keys) {
			next = keys[pos]
		}
		k := mustBetween(t, prev, next)
		keys = slices.Insert(keys, pos, k)
	}
	if !slices.IsSorted(keys) {
		t.Fatal("keys not sorted after random insertions")
	}
	for i := 1; i < len(keys); i++ {
		if keys[i] == keys[i-1] {
			t.Fatalf("duplicate key %q", keys[i])
		}
	}
}

func TestBetween_Rejects(t *testing.T) {
	cases := []struct {
		name       string
		prev, next string
		want       error
	}{
		{"equal", "a1", "a1", ErrInvalidRange},
		{"reversed", "a2", "a1", ErrInvalidRange},
		{"trailing zero", "a10", "", ErrInvalidKey},
		{"bad head", "!1", "", ErrInvalidKey},
		{"short", "b1", "", ErrInvalidKey},
		{"bad digit", "a1-", "", ErrInvalidKey},
		{"smallest", "", smallestInteger, ErrInvalidKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Between(tc.prev, tc.next)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
