package service

import (
	"testing"

	"alphanex/internal/config"
)

func TestConvertXP(t *testing.T) {
	cfg := &config.Config{XPToUSDRate: "0.01", MinWithdrawalXP: 100}
	svc, err := NewWithdrawalService(nil, nil, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		amountXP int
		expected string
	}{
		{"minimum withdrawal", 100, "1.00"},
		{"round amount", 2500, "25.00"},
		{"single point", 1, "0.01"},
		{"zero", 0, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.ConvertXP(tt.amountXP).StringFixed(2); got != tt.expected {
				t.Errorf("ConvertXP(%d) = %s, want %s", tt.amountXP, got, tt.expected)
			}
		})
	}

	t.Run("no float drift on odd rates", func(t *testing.T) {
		cfg := &config.Config{XPToUSDRate: "0.001"}
		svc, err := NewWithdrawalService(nil, nil, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := svc.ConvertXP(123).StringFixed(2); got != "0.12" {
			t.Errorf("ConvertXP(123) = %s, want 0.12", got)
		}
	})
}

func TestNewWithdrawalServiceRejectsBadRate(t *testing.T) {
	cfg := &config.Config{XPToUSDRate: "one cent"}
	if _, err := NewWithdrawalService(nil, nil, cfg); err == nil {
		t.Error("expected error for malformed rate")
	}
}
