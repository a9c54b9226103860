package date

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2025-07-01", want: New(2025, time.July, 1)},
		{in: "2025-7-1", want: New(2025, time.July, 1)},
		{in: "2024-02-29", want: New(2024, time.February, 29)},
		{in: "not-a-date", wantErr: true},
		{in: "2025/07/01", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): want error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAdd_NormalizesAcrossMonths(t *testing.T) {
	got := New(2025, time.January, 31).Add(1)
	want := New(2025, time.February, 1)
	if got != want {
		t.Errorf("Add(1) = %v, want %v", got, want)
	}
	got = New(2024, time.March, 1).Add(-1)
	want = New(2024, time.February, 29) // leap year
	if got != want {
		t.Errorf("Add(-1) = %v, want %v", got, want)
	}
}

func TestDays_IncludesWeekends(t *testing.T) {
	from := MustParse("2025-01-03") // a Friday
	to := MustParse("2025-01-06")   // the following Monday
	var got []Date
	for on := range Days(from, to) {
		got = append(got, on)
	}
	if len(got) != 4 {
		t.Fatalf("Days(%v, %v): got %d days, want 4", from, to, len(got))
	}
	if got[1].String() != "2025-01-04" || got[2].String() != "2025-01-05" {
		t.Errorf("Days skipped the weekend: %v", got)
	}
}

func TestYearRange(t *testing.T) {
	r := YearRange(2023)
	if r.From.String() != "2023-01-01" || r.To.String() != "2023-12-31" {
		t.Errorf("YearRange(2023) = %v", r)
	}
	if !r.Contains(MustParse("2023-06-15")) {
		t.Error("YearRange(2023) should contain 2023-06-15")
	}
	if r.Contains(MustParse("2024-01-01")) {
		t.Error("YearRange(2023) should not contain 2024-01-01")
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := MustParse("2021-11-03")
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(b) != `"2021-11-03"` {
		t.Errorf("MarshalJSON = %s", b)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if back != d {
		t.Errorf("round trip = %v, want %v", back, d)
	}
}
