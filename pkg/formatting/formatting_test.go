package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/attest/pkg/formatting"
)

type sample struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  sample
	}{
		{"raw", `{"name":"raw","value":42}`, sample{"raw", 42}},
		{"padded", "  {\"name\":\"padded\",\"value\":1}\n", sample{"padded", 1}},
		{"fenced", "```json\n{\"name\":\"fenced\",\"value\":7}\n```", sample{"fenced", 7}},
		{"fenced without tag", "```\n{\"name\":\"bare\",\"value\":3}\n```", sample{"bare", 3}},
		{"fenced in prose", "Here is the result:\n```json\n{\"name\":\"wrapped\",\"value\":5}\n```\nDone.", sample{"wrapped", 5}},
		{"object in prose", `The answer is {"name":"inline","value":9} as requested.`, sample{"inline", 9}},
		{"braces inside strings", `Result: {"name":"a } b {","value":2} trailing }`, sample{"a } b {", 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[sample](tt.input)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFailures(t *testing.T) {
	for _, input := range []string{"", "not json at all", "{\"name\": unterminated", "```json\n{broken}\n```"} {
		t.Run(input, func(t *testing.T) {
			if _, err := formatting.Parse[sample](input); !errors.Is(err, formatting.ErrParseFailed) {
				t.Errorf("Parse(%q) error = %v, want ErrParseFailed", input, err)
			}
		})
	}
}

func TestParseNonObject(t *testing.T) {
	got, err := formatting.Parse[[]int](`[1,2,3]`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("Parse = %v, want [1 2 3]", got)
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"512B", 512, false},
		{"1KB", 1 << 10, false},
		{"50MB", 50 << 20, false},
		{"50 mib", 50 << 20, false},
		{"1.5GiB", 3 << 29, false},
		{"2gb", 2 << 30, false},
		{"1TB", 1 << 40, false},
		{"  10M ", 10 << 20, false},
		{"0", 0, false},
		{"", 0, true},
		{"50XX", 0, true},
		{"MB", 0, true},
		{"-5MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{50 << 20, "50.0 MB"},
		{3 << 29, "1.5 GB"},
	}

	for _, tt := range tests {
		if got := formatting.FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
