package service

import "testing"

func TestCountColumns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"two columns", "date,value\n2024-01-01,3\n", 2},
		{"one column", "value\n1\n2\n", 1},
		{"header only", "a,b,c", 3},
		{"empty document", "", 0},
		{"leading blank lines", "\n\nx,y\n1,2\n", 2},
		{"quoted comma", "\"a,b\",c\n", 2},
		{"ragged rows", "a,b\n1,2,3\n4\n", 2},
		{"crlf line endings", "a,b\r\n1,2\r\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountColumns(tt.text); got != tt.want {
				t.Errorf("CountColumns(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
