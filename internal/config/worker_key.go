package config

// WorkerKeyStruct names the Redis queues shared between publishers and the
// background workers draining them.
type WorkerKeyStruct struct {
	AnalyticsEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	AnalyticsEventsQueue: "analytics_events_queue",
}
