package money

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{in: "1000", want: 100000},
		{in: "1000.5", want: 100050},
		{in: "1000.50", want: 100050},
		{in: "0.05", want: 5},
		{in: ".05", want: 5},
		{in: "-12.34", want: -1234},
		{in: "0", want: 0},
		{in: "10.123", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.2.3", wantErr: true},
	}

	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{in: 100000, want: "1000.00"},
		{in: 100050, want: "1000.50"},
		{in: 5, want: "0.05"},
		{in: -1234, want: "-12.34"},
		{in: 0, want: "0.00"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Amount(%d).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMulRateRoundsHalfUp(t *testing.T) {
	cases := []struct {
		base Amount
		rate float64
		want Amount
	}{
		// 3000.00 at 7.5% = 225.00 exactly.
		{base: 300000, rate: 7.5, want: 22500},
		// 10.00 at 7.5% = 0.75 exactly.
		{base: 1000, rate: 7.5, want: 75},
		// 0.10 at 7.5% = 0.0075, rounds up to 0.01.
		{base: 10, rate: 7.5, want: 1},
		// 1.00 at 0.5% = 0.005, the half case rounds up.
		{base: 100, rate: 0.5, want: 1},
		// 1.00 at 0.4% = 0.004, rounds down.
		{base: 100, rate: 0.4, want: 0},
		{base: 300000, rate: 0, want: 0},
	}
	for _, tc := range cases {
		if got := tc.base.MulRate(tc.rate); got != tc.want {
			t.Errorf("Amount(%d).MulRate(%v) = %d, want %d", tc.base, tc.rate, got, tc.want)
		}
	}
}

func TestArithmeticIsExact(t *testing.T) {
	price, err := Parse("1000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	subtotal := price.MulQty(3)
	if subtotal.String() != "3000.00" {
		t.Fatalf("subtotal = %s, want 3000.00", subtotal)
	}
	tax := subtotal.MulRate(7.5)
	if tax.String() != "225.00" {
		t.Fatalf("tax = %s, want 225.00", tax)
	}
	total := subtotal.Add(tax)
	if total.String() != "3225.00" {
		t.Fatalf("total = %s, want 3225.00", total)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	original := Amount(322500)
	payload, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `"3225.00"` {
		t.Fatalf("marshal = %s, want \"3225.00\"", payload)
	}

	var decoded Amount
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != original {
		t.Fatalf("round trip = %d, want %d", decoded, original)
	}

	// Bare numeric input is accepted too.
	if err := json.Unmarshal([]byte("1000.50"), &decoded); err != nil {
		t.Fatalf("unmarshal bare: %v", err)
	}
	if decoded != 100050 {
		t.Fatalf("bare round trip = %d, want 100050", decoded)
	}
}
