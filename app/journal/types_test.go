package journal

import (
	"strings"
	"testing"
)

func TestSettings_ValidateFor(t *testing.T) {
	format := testFormat()

	tests := []struct {
		name    string
		margins Margins
		wantErr string
	}{
		{"normal margins", Margins{Left: 20, Right: 15, Top: 20, Bottom: 20}, ""},
		{"no horizontal room", Margins{Left: 100, Right: 100, Top: 20, Bottom: 20}, "printable width"},
		{"no vertical room", Margins{Left: 20, Right: 15, Top: 150, Bottom: 150}, "printable height"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			settings.Margins = tt.margins

			err := settings.ValidateFor(&format)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error about %s, got %v", tt.wantErr, err)
			}
		})
	}
}
