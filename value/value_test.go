package value

import (
	"sort"
	"testing"

	. "github.com/fulldump/biff"
)

func TestNumber(t *testing.T) {

	cases := map[any]bool{
		"30":    true,
		"-2.5":  true,
		"1e3":   true,
		".5":    true,
		"30a":   false,
		"Inf":   false,
		"NaN":   false,
		"":      false,
		"a@b.c": false,
		42:      true,
		3.25:    true,
		true:    false,
		nil:     false,
	}

	for input, expected := range cases {
		_, ok := Number(input)
		AssertEqual(ok, expected)
	}
}

func TestString(t *testing.T) {
	AssertEqual(String(nil), "")
	AssertEqual(String("Ann"), "Ann")
	AssertEqual(String(30.0), "30")
	AssertEqual(String(2.5), "2.5")
	AssertEqual(String(int64(7)), "7")
	AssertEqual(String(true), "true")
}

func TestNormalize(t *testing.T) {
	AssertEqual(Normalize(int8(3)), 3.0)
	AssertEqual(Normalize(uint64(10)), 10.0)
	AssertEqual(Normalize("10"), "10")
	AssertEqual(Normalize(nil), nil)
	AssertEqual(Normalize(false), "false")
}

func TestCompare_Numeric(t *testing.T) {
	AssertEqual(Compare("9", "10"), -1)
	AssertEqual(Compare(10.0, "10"), 0)
	AssertEqual(Compare("30.0", 30), 0)
	AssertEqual(Compare(2, 1.5), 1)
}

func TestCompare_Strings(t *testing.T) {
	AssertEqual(Compare("Ann", "Bo"), -1)
	AssertEqual(Compare("bo", "Bo"), 1)
	AssertEqual(Compare("x", "x"), 0)
}

func TestCompare_MixedIsTotal(t *testing.T) {

	values := []any{"b", "10", "a", 2.0, "1a", "-1", "", 3}
	sort.SliceStable(values, func(i, j int) bool {
		return Compare(values[i], values[j]) < 0
	})

	AssertEqual(values, []any{"-1", 2.0, 3, "10", "", "1a", "a", "b"})
}
