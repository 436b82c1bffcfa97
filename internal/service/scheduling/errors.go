package scheduling

import "errors"

// Sentinel errors for the scheduling service layer.
var (
	ErrCampaignNotFound  = errors.New("campaign send settings not found")
	ErrInvalidCampaignID = errors.New("invalid campaign id")
)
