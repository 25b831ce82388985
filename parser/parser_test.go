package parser

import (
	"strings"
	"testing"
)

func TestRatingToNumeric(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "One", input: "One", expected: 1},
		{name: "Two", input: "Two", expected: 2},
		{name: "Three", input: "Three", expected: 3},
		{name: "Four", input: "Four", expected: 4},
		{name: "Five", input: "Five", expected: 5},
		{name: "Zero is not a known token", input: "Zero", expected: 0},
		{name: "invalid rating", input: "Invalid", expected: 0},
		{name: "empty string", input: "", expected: 0},
		{name: "lowercase", input: "three", expected: 0},
		{name: "uppercase", input: "FIVE", expected: 0},
		{name: "padded", input: " One ", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RatingToNumeric(tt.input)
			if result != tt.expected {
				t.Errorf("RatingToNumeric(%q) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRatingToken(t *testing.T) {
	tests := []struct {
		class  string
		want   string
		wantOK bool
	}{
		{class: "star-rating Three", want: "Three", wantOK: true},
		{class: "  star-rating   One  ", want: "One", wantOK: true},
		{class: "star-rating Four extra", want: "Four", wantOK: true},
		{class: "star-rating", wantOK: false},
		{class: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			got, ok := RatingToken(tt.class)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("RatingToken(%q) = %q/%v, want %q/%v", tt.class, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with whitespace",
			input:    "\n\n    \n        In stock\n    \n",
			expected: "In stock",
		},
		{
			name:     "no whitespace",
			input:    "In stock",
			expected: "In stock",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeAvailability(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeAvailability(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "Soumission", expected: "Soumission"},
		{input: "Sharp Objects", expected: "Sharp_Objects"},
		{input: "A Light in the Attic", expected: "A_Light_in_the_Attic"},
		{input: "Tipping the Velvet: 1999", expected: "Tipping_the_Velvet__1999"},
		{input: "Les Misérables", expected: "Les_Misérables"},
		{input: "../../etc/passwd", expected: "______etc_passwd"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeTitle(tt.input)
			if got != tt.expected {
				t.Fatalf("SanitizeTitle(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			if strings.ContainsAny(got, "/\\:. ") {
				t.Fatalf("SanitizeTitle(%q) = %q contains path characters", tt.input, got)
			}
		})
	}
}

func TestSanitizeTitleCollisions(t *testing.T) {
	if SanitizeTitle("Who?What") != SanitizeTitle("Who!What") {
		t.Fatalf("titles differing only in punctuation should share a stem")
	}
}

func TestPriceValue(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{input: "£51.77", expected: 51.77},
		{input: "Â£13.99", expected: 13.99},
		{input: " $1,024.50 ", expected: 1024.50},
		{input: "€9", expected: 9},
		{input: "", expected: 0},
		{input: "free", expected: 0},
	}

	for _, tt := range tests {
		if got := PriceValue(tt.input); got != tt.expected {
			t.Errorf("PriceValue(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestInStock(t *testing.T) {
	tests := map[string]bool{
		"In stock":                true,
		"In stock (22 available)": true,
		"IN STOCK":                true,
		"Out of stock":            false,
		"":                        false,
	}
	for input, want := range tests {
		if got := InStock(input); got != want {
			t.Errorf("InStock(%q) = %v, want %v", input, got, want)
		}
	}
}
