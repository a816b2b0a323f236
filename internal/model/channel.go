package model

import "fmt"

type Channel string

const (
	ChannelAlimtalk Channel = "alimtalk"
	ChannelSMS      Channel = "sms"
	ChannelLMS      Channel = "lms"
	ChannelMMS      Channel = "mms"
)

func ParseChannel(s string) (Channel, error) {
	switch ch := Channel(s); ch {
	case ChannelAlimtalk, ChannelSMS, ChannelLMS, ChannelMMS:
		return ch, nil
	default:
		return "", fmt.Errorf("unknown channel %q", s)
	}
}

// CostColumn is the credit_pools column holding the unit cost of ch.
func (ch Channel) CostColumn() string {
	return string(ch) + "_cost"
}
