// Package retention provides the self-rescheduling job that prunes old jobs.
//
// The job is registered under JobName. Each run deletes terminal jobs older
// than the retention window, keeping members of groups that are not yet
// fully terminal and old, then deletes groups left without jobs and finally
// makes sure exactly one pending instance of itself exists for the next run.
package retention
