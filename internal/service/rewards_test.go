package service

import (
	"testing"

	"alphanex/internal/config"
)

func TestRewardTable(t *testing.T) {
	cfg := &config.Config{
		XPRewardUpload:  25,
		XPRewardReview:  15,
		XPApprovalBonus: 50,
	}
	table := NewRewardTable(cfg)

	t.Run("configured amounts", func(t *testing.T) {
		if got := table.Amount(ActionUpload); got != 25 {
			t.Errorf("upload reward = %d, want 25", got)
		}
		if got := table.Amount(ActionReview); got != 15 {
			t.Errorf("review reward = %d, want 15", got)
		}
		if got := table.Amount(ActionApprovalBonus); got != 50 {
			t.Errorf("approval bonus = %d, want 50", got)
		}
	})

	t.Run("unknown action is zero", func(t *testing.T) {
		if got := table.Amount(Action("jackpot")); got != 0 {
			t.Errorf("unknown action = %d, want 0", got)
		}
	})
}
