package kafka

// Topic definitions for Kafka event streaming
const (
	// TopicCalendarEvents carries every calendar event written by a sync run, keyed by event id
	TopicCalendarEvents = "calendar.events"

	// TopicSyncReports carries one RunReport per finished run, keyed by job
	TopicSyncReports = "calendar.sync.reports"

	// TopicSyncRequests carries on-demand sync requests {job, from, to}
	TopicSyncRequests = "calendar.sync.requests"
)

// Topics lists every topic the service produces to or consumes from
var Topics = []string{TopicCalendarEvents, TopicSyncReports, TopicSyncRequests}
