package video

import (
	"strings"
	"testing"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
		errMsg  string
	}{
		{
			name:  "clock format",
			input: "01:30:45",
			want:  5445,
		},
		{
			name:  "clock format with fraction",
			input: "00:00:10.25",
			want:  10.25,
		},
		{
			name:  "plain seconds",
			input: "12.5",
			want:  12.5,
		},
		{
			name:  "all zeros",
			input: "00:00:00",
			want:  0,
		},
		{
			name:    "minutes out of range",
			input:   "00:60:00",
			wantErr: true,
			errMsg:  "minutes must be 0-59",
		},
		{
			name:    "seconds out of range",
			input:   "00:00:60",
			wantErr: true,
			errMsg:  "seconds must be 0-59",
		},
		{
			name:    "negative seconds",
			input:   "-3",
			wantErr: true,
			errMsg:  "must not be negative",
		},
		{
			name:    "garbage",
			input:   "soon",
			wantErr: true,
			errMsg:  "invalid timestamp format",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
			errMsg:  "invalid timestamp format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:       "00:00:00.000",
		1.5:     "00:00:01.500",
		3661.25: "01:01:01.250",
		-4:      "00:00:00.000",
	}
	for in, want := range cases {
		if got := FormatTimestamp(in); got != want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", in, got, want)
		}
	}
}
