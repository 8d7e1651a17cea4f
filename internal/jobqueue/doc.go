// Package jobqueue runs the filesystem work of one session strictly in
// submission order.
//
// A Queue owns at most one worker goroutine. The worker starts when a job is
// enqueued onto an idle queue and exits once the queue is empty. Failures and
// panics are logged and recorded on the job's Handle; they never stop the
// jobs queued behind them. Observers receive lifecycle callbacks so the
// journal and notification layers can follow job progress without the queue
// knowing about them.
package jobqueue
