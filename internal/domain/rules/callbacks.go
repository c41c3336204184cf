package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback data tokens carried by inline keyboard buttons. The user-facing
// tokens are stable identifiers persisted in old chat messages, so renaming
// one breaks every keyboard already delivered.
const (
	CallbackStart              = "start_verification"
	CallbackActivation         = "activation_instructions"
	CallbackRegistered         = "registered"
	CallbackDepositHelp        = "deposit_help"
	CallbackContactSupport     = "contact_support"
	CallbackFreeTips           = "free_tips"
	CallbackJoinCommunity      = "join_community"
	CallbackMarketAnalysis     = "market_analysis"
	CallbackLearningResources  = "learning_resources"
	CallbackCommunityRules     = "community_rules"
	CallbackBackToVerification = "back_to_verification"
	CallbackNotInterested      = "not_interested"
	CallbackRemoveFromList     = "remove_from_list"
	CallbackVIPRequirements    = "vip_verification_requirements"
	CallbackVIPContinue        = "vip_continue_registration"
)

// Admin decision callbacks carry the verification request id after the verb.
const (
	verifPrefix = "verif"
	VerbApprove = "approve"
	VerbReject  = "reject"
	VerbView    = "view"
)

func VerificationCallback(verb string, requestID int64) string {
	return fmt.Sprintf("%s:%s:%d", verifPrefix, verb, requestID)
}

// ParseVerificationCallback splits "verif:<verb>:<id>" tokens. The bool is
// false for any token that is not an admin decision callback.
func ParseVerificationCallback(data string) (verb string, requestID int64, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != verifPrefix {
		return "", 0, false
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	switch parts[1] {
	case VerbApprove, VerbReject, VerbView:
		return parts[1], id, true
	}
	return "", 0, false
}
