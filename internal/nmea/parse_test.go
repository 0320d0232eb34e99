package nmea

import "testing"

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want int32
	}{
		{"022.4", 2240},
		{"084.4", 8440},
		{"0.9", 90},
		{"1.03", 103},
		{"545.4", 54540},
		{"-12.345", -1234},
		{"-0.05", -5},
		{"5", 500},
		{"5.", 500},
		{"12.x", 1200},
		{"123519", 12351900},
		{"092750.000", 9275000},
		{"abc", 0},
		{"", 0},
		{"7abc.5", 700},
	}
	for _, tc := range cases {
		if got := ParseDecimal(tc.in); got != tc.want {
			t.Fatalf("ParseDecimal(%q)=%d want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseDegrees(t *testing.T) {
	cases := []struct {
		in   string
		want RawDegrees
	}{
		{"4807.038", RawDegrees{Deg: 48, Billionths: 117300000}},
		{"01131.000", RawDegrees{Deg: 11, Billionths: 516666667}},
		{"5321.6802", RawDegrees{Deg: 53, Billionths: 361336667}},
		{"00630.3372", RawDegrees{Deg: 6, Billionths: 505620000}},
		{"1000", RawDegrees{Deg: 10}},
		{"", RawDegrees{}},
		{"4807.0x8", RawDegrees{Deg: 48, Billionths: 116666667}},
	}
	for _, tc := range cases {
		if got := ParseDegrees(tc.in); got != tc.want {
			t.Fatalf("ParseDegrees(%q)=%+v want %+v", tc.in, got, tc.want)
		}
	}
}

func TestRawDegrees_Degrees(t *testing.T) {
	r := RawDegrees{Deg: 48, Billionths: 117300000}
	if got := r.Degrees(); !near(got, 48.1173, 1e-12) {
		t.Fatalf("degrees=%v", got)
	}
	r.Negative = true
	if got := r.Degrees(); !near(got, -48.1173, 1e-12) {
		t.Fatalf("degrees=%v", got)
	}
}

func TestChecksumOf(t *testing.T) {
	cases := map[string]byte{
		"74":  0x74,
		"6A":  0x6A,
		"6a":  0x6A,
		"fF":  0xFF,
		"00":  0x00,
		"0D9": 0x0D,
	}
	for in, want := range cases {
		if got := checksumOf(in); got != want {
			t.Fatalf("checksumOf(%q)=%02X want %02X", in, got, want)
		}
	}
}
