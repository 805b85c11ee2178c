// Package jobs provides the background tasks of the order service.
//
// # Available Jobs
//
// 1. OutboxRelayJob - Runs on a cron schedule (every second by default) and ships staged outbox messages to the broker
// 2. NotificationConsumerJob - Keeps the broker consumer feeding the notification coordinator running
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	jobManager := jobs.NewJobManager(relayJob, consumerJob)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	// Stop all jobs when shutting down
//	defer jobManager.StopAll()
//
// # Error Handling
//
// - Relay storage failures are logged and retried on the next tick
// - Messages that exhaust their publish attempts are logged at error level
// - Failed job starts will stop any already running jobs
package jobs
