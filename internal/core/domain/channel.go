package domain

import "strings"

// Channel is the medium a placement runs on. Channel names are stored
// lower-cased in documents; ParseChannel normalises free-form input.
type Channel string

const (
	ChannelWebsite     Channel = "website"
	ChannelNewsletter  Channel = "newsletter"
	ChannelPrint       Channel = "print"
	ChannelRadio       Channel = "radio"
	ChannelPodcast     Channel = "podcast"
	ChannelSocialMedia Channel = "social_media"
	ChannelEvents      Channel = "events"
	ChannelStreaming   Channel = "streaming"
)

// ParseChannel lower-cases and trims a raw channel tag. Unknown channels pass
// through as-is; completion falls back to a permissive rule for them.
func ParseChannel(raw string) Channel {
	return Channel(strings.ToLower(strings.TrimSpace(raw)))
}

// IsDigital reports whether the channel delivers measurable impressions.
// Digital placements complete against an impressions goal or the campaign end
// date; everything else completes against proof-of-performance counts.
func (c Channel) IsDigital() bool {
	switch c {
	case ChannelWebsite, ChannelNewsletter, ChannelStreaming:
		return true
	default:
		return false
	}
}
