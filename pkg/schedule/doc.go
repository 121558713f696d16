// Package schedule provides scheduling implementations for recurring work.
//
// This package includes:
//   - Schedule interface for computing the next run
//   - Every() for fixed-interval schedules
//   - Daily() for daily schedules at a specific time
//   - Weekly() for weekly schedules on a specific day and time
//   - Cron() and ParseCron() for cron expression-based schedules
//   - Parse() for configuration values that may be durations or cron expressions
//
// The retention job uses a Schedule to place its successor and the worker
// uses one to trigger sweeps.
package schedule
