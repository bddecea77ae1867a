package utils

import "testing"

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABC-123", "ABC123"},
		{"abc 123", "ABC123"},
		{"a.b.c-1 2 3", "ABC123"},
		{"RATA666", "RATA666"},
		{"rata-666", "RATA666"},
		{"", "DESC"},
		{"---", "DESC"},
		{"  ", "DESC"},
		{"ÑU-01", "U01"},
	}
	for _, tt := range tests {
		if got := NormalizePlate(tt.in); got != tt.want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePlateEquivalence(t *testing.T) {
	variants := []string{"ABC-123", "abc123", "ABC 123", "a-b-c-1-2-3", "ABC.123"}
	want := NormalizePlate(variants[0])
	for _, v := range variants[1:] {
		if got := NormalizePlate(v); got != want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"El Chato", "CHATO"},
		{"ALIAS CHATO", "CHATO"},
		{"alias el chato", "CHATO"},
		{"La Güera", "GÜERA"},
		{"  Juan Perez  ", "JUAN PEREZ"},
		{"", "DESC"},
		{"   ", "DESC"},
		{"ELENA", "ELENA"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
