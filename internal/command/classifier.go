// Package command classifies operator commands addressed to the agent by
// keyword tier. It is a sibling of the scan package: scan gates inbound
// content, this gates what a (possibly spoofed) operator asks the agent to
// do. Tiers come from policy; trust is an explicit sender-set lookup.
package command

import (
	"strings"

	"github.com/mechamoby/sentry/internal/policy"
)

// Decisions, ordered by restrictiveness within each tier pair.
const (
	DecisionAllow           = "allow"
	DecisionAllowWithNotice = "allow_with_notice"
	DecisionChallengePIN    = "challenge_pin"
	DecisionQuarantine      = "quarantine"
	DecisionDeny            = "deny"
)

// Risk bands for operator commands.
const (
	RiskGreen  = "green"
	RiskYellow = "yellow"
	RiskRed    = "red"
)

// Result is the classifier's decision for one operator command.
type Result struct {
	Decision string `json:"decision"`
	Risk     string `json:"risk"`
	Reason   string `json:"reason"`
	Channel  string `json:"channel,omitempty"`
	Sender   string `json:"sender,omitempty"`
}

// Classify applies the policy keyword tiers to one command:
//
//	denyKeywords    → deny/red regardless of sender
//	redKeywords     → challenge_pin for trusted senders, quarantine otherwise
//	yellowKeywords  → allow_with_notice for trusted senders, quarantine otherwise
//
// A command that clears every tier is still structurally parsed; a remote
// script piped into an interpreter escalates an otherwise-allow result.
func Classify(text, sender, channel string, pol *policy.Policy) Result {
	lowered := strings.ToLower(text)
	trusted := pol.TrustedSender(sender)

	res := Result{Channel: channel, Sender: sender}

	switch {
	case containsAny(lowered, pol.DenyKeywords):
		res.Decision = DecisionDeny
		res.Risk = RiskRed
		res.Reason = "policy bypass pattern"

	case containsAny(lowered, pol.RedKeywords):
		res.Decision = DecisionQuarantine
		if trusted {
			res.Decision = DecisionChallengePIN
		}
		res.Risk = RiskRed
		res.Reason = "high-risk command"

	case containsAny(lowered, pol.YellowKeywords):
		res.Decision = DecisionQuarantine
		if trusted {
			res.Decision = DecisionAllowWithNotice
		}
		res.Risk = RiskYellow
		res.Reason = "state-changing command"

	default:
		res.Decision = DecisionAllow
		res.Risk = RiskGreen
		res.Reason = "low-risk"
	}

	if res.Decision == DecisionAllow && hasPipeToInterpreter(text) {
		res.Decision = DecisionQuarantine
		res.Risk = RiskRed
		res.Reason = "remote script piped to interpreter"
	}

	return res
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
