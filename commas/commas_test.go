package commas

import "testing"

func TestInt(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{200000, "200,000"},
		{1234567, "1,234,567"},
		{-42, "-42"},
		{-1234567, "-1,234,567"},
	}

	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			if got := Int(c.in); got != c.want {
				t.Errorf("Int(%d) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}
