// Package rules maps placement channels to completion strategies.
package rules

import "admarket/internal/core/domain"

// RuleType selects how a placement is judged complete.
type RuleType string

const (
	// ImpressionsOrEndDate completes when delivered impressions meet the goal
	// or the campaign end date has passed, whichever comes first.
	ImpressionsOrEndDate RuleType = "impressions_or_end_date"
	// ProofCount completes when enough proof-of-performance artifacts have
	// been attached.
	ProofCount RuleType = "proof_count"
)

// CompletionRule describes one channel's completion strategy. UsesFrequency
// controls whether the proof denominator comes from the item's scheduled
// frequency or is fixed at one.
type CompletionRule struct {
	Type          RuleType
	UsesFrequency bool
}

var byChannel = map[domain.Channel]CompletionRule{
	domain.ChannelWebsite:     {Type: ImpressionsOrEndDate},
	domain.ChannelNewsletter:  {Type: ImpressionsOrEndDate},
	domain.ChannelStreaming:   {Type: ImpressionsOrEndDate},
	domain.ChannelPrint:       {Type: ProofCount, UsesFrequency: true},
	domain.ChannelRadio:       {Type: ProofCount, UsesFrequency: true},
	domain.ChannelPodcast:     {Type: ProofCount, UsesFrequency: true},
	domain.ChannelSocialMedia: {Type: ProofCount, UsesFrequency: true},
	domain.ChannelEvents:      {Type: ProofCount, UsesFrequency: true},
}

// ForChannel returns the completion rule for a channel. Unknown channels get
// a permissive proof-count rule where a single proof suffices, so a channel
// added upstream never deadlocks completion here.
func ForChannel(ch domain.Channel) CompletionRule {
	if rule, ok := byChannel[domain.ParseChannel(string(ch))]; ok {
		return rule
	}
	return CompletionRule{Type: ProofCount, UsesFrequency: false}
}

// ProofScope names the policy for order-level proofs (proofs attached with no
// item path).
type ProofScope string

const (
	// ScopeOrderWide counts order-level proofs toward every placement.
	ScopeOrderWide ProofScope = "order-wide"
	// ScopePlacement counts only proofs attached to the specific placement.
	ScopePlacement ProofScope = "placement"
)
