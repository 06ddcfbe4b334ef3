package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Business Cards", "business-cards"},
		{"Business Cards – Premium (500)", "business-cards-premium-500"},
		{"  --Flyers!!  A5--  ", "flyers-a5"},
		{"Café Crème Menu", "cafe-creme-menu"},
		{"T-Shirt_XL/Black", "t-shirt-xl-black"},
		{"100% Recycled", "100-recycled"},
		{"ÅNGSTRÖM", "angstrom"},
		{"", ""},
		{"***", ""},
		{"日本 Poster", "poster"},
	}
	for _, tc := range cases {
		if got := Make(tc.in); got != tc.want {
			t.Fatalf("Make(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestMake_Idempotent(t *testing.T) {
	for _, in := range []string{"Glossy Card", "A4 / 300gsm", "Rollup Banner 85×200"} {
		once := Make(in)
		if twice := Make(once); twice != once {
			t.Fatalf("Make not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
