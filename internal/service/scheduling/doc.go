// Package scheduling re-runs the send-time engine over a campaign's pending
// queue when the campaign's delivery settings change.
//
// The service layer depends on the Repository interface defined in
// repository.go and on any Scheduler (the sendtime engine in production). It
// never imports net/http or database/sql directly. It is also the only place
// the wall clock is read: the engine always receives the current time from
// here.
package scheduling
