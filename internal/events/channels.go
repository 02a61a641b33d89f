package events

// alwaysNotify categories notify regardless of tier.
var alwaysNotify = map[string]bool{
	CategoryContingency: true,
	CategoryCalibration: true,
}

// ShouldNotify is false only for normal/low tiers outside the always-notify
// categories.
func ShouldNotify(ev Event, tier Severity) bool {
	if tier >= SeverityHigh {
		return true
	}
	return alwaysNotify[ev.Category()]
}

// SelectChannels picks the delivery channel set for an event. The empty set
// means the event is audited but not notified.
func SelectChannels(ev Event, tier Severity) []Channel {
	if !ShouldNotify(ev, tier) {
		return nil
	}
	channels := []Channel{ChannelPersisted, ChannelBroadcast}
	if tier >= SeverityHigh {
		channels = append(channels, ChannelDirected)
	}
	if tier == SeverityCritical || (tier == SeverityHigh && mailOnHigh(ev)) {
		channels = append(channels, ChannelMail)
	}
	return channels
}

// mailOnHigh lists the high-tier situations that still warrant external
// mail: equipment removal, late maintenance completion, critical file types
// and sensitive or failed exports.
func mailOnHigh(ev Event) bool {
	switch ev.Type() {
	case EventEquipmentDeleted:
		return true
	case EventMaintenanceCompleted:
		return ev.PayloadBool("late")
	case EventFileProcessed:
		return ev.PayloadBool("critical_type")
	case EventExportGenerated:
		return ev.PayloadBool("sensitive") || ev.PayloadBool("failed")
	}
	return false
}
