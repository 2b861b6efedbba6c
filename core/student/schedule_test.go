package student

import (
	"reflect"
	"testing"
	"time"
)

func TestParseSession(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []Session
		wantErr bool
	}{
		{
			name: "single day PM",
			in:   "Mon 6:00 PM",
			want: []Session{{Weekday: time.Monday, Hour: 18, Minute: 0}},
		},
		{
			name: "multi day",
			in:   "Mon/Wed 6:00 PM",
			want: []Session{
				{Weekday: time.Monday, Hour: 18, Minute: 0},
				{Weekday: time.Wednesday, Hour: 18, Minute: 0},
			},
		},
		{
			name: "morning",
			in:   "Sat 10:30 AM",
			want: []Session{{Weekday: time.Saturday, Hour: 10, Minute: 30}},
		},
		{
			name: "noon",
			in:   "Tue 12:00 PM",
			want: []Session{{Weekday: time.Tuesday, Hour: 12, Minute: 0}},
		},
		{
			name: "midnight",
			in:   "Fri 12:15 AM",
			want: []Session{{Weekday: time.Friday, Hour: 0, Minute: 15}},
		},
		{
			name: "lowercase meridiem and padding",
			in:   "  Thu 4:05 pm ",
			want: []Session{{Weekday: time.Thursday, Hour: 16, Minute: 5}},
		},
		{name: "no time", in: "Mon", wantErr: true},
		{name: "bad weekday", in: "Xyz 6:00 PM", wantErr: true},
		{name: "bad hour", in: "Mon 13:00 PM", wantErr: true},
		{name: "bad minute", in: "Mon 6:75 PM", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSession(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSession(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSession(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseScheduleSkipsMalformed(t *testing.T) {
	got := ParseSchedule("Mon/Wed 6:00 PM, not-a-session, Sat 10:00 AM")
	want := []Session{
		{Weekday: time.Monday, Hour: 18, Minute: 0},
		{Weekday: time.Wednesday, Hour: 18, Minute: 0},
		{Weekday: time.Saturday, Hour: 10, Minute: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSchedule() = %v, want %v", got, want)
	}
}

func TestMatchesName(t *testing.T) {
	stu := Student{
		Name:    "Mariam Gevorgyan",
		Aliases: []string{"M. Gevorgyan", " Mariam G "},
	}
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "exact", in: "Mariam Gevorgyan", want: true},
		{name: "case insensitive", in: "mariam gevorgyan", want: true},
		{name: "whitespace", in: "  Mariam Gevorgyan  ", want: true},
		{name: "alias", in: "m. gevorgyan", want: true},
		{name: "alias with padding", in: "mariam g", want: true},
		{name: "no accent folding", in: "Mariám Gevorgyan", want: false},
		{name: "different person", in: "Maria Gevorgyan", want: false},
		{name: "empty", in: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stu.MatchesName(tt.in); got != tt.want {
				t.Errorf("MatchesName(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
