package events

// Severity is the ordered classification tier driving recipient scope and
// channel escalation.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityNormal
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityNormal:
		return "normal"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	return "normal"
}

// Escalate raises the tier by one, capped at critical.
func (s Severity) Escalate() Severity {
	if s >= SeverityCritical {
		return SeverityCritical
	}
	return s + 1
}

// Channel is a notification delivery medium.
type Channel string

const (
	ChannelPersisted Channel = "persisted"
	ChannelBroadcast Channel = "broadcast"
	ChannelDirected  Channel = "directed_message"
	ChannelMail      Channel = "external_mail"
)
