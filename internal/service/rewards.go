package service

import "alphanex/internal/config"

// Action identifies an XP-earning (or XP-costing) event.
type Action string

const (
	ActionUpload        Action = "upload"
	ActionReview        Action = "review"
	ActionApprovalBonus Action = "approval_bonus"
)

// RewardTable is a pure lookup from action to a fixed XP amount.
type RewardTable map[Action]int

// NewRewardTable builds the table from configuration.
func NewRewardTable(cfg *config.Config) RewardTable {
	return RewardTable{
		ActionUpload:        cfg.XPRewardUpload,
		ActionReview:        cfg.XPRewardReview,
		ActionApprovalBonus: cfg.XPApprovalBonus,
	}
}

// Amount returns the XP amount for an action, zero for unknown actions.
func (t RewardTable) Amount(a Action) int {
	return t[a]
}
