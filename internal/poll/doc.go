// Package poll drives a render job to a terminal status by retrieving its
// snapshot on a fixed interval.
//
// The driver retrieves before it ever sleeps, so a job that is already
// finished costs exactly one request. The timeout is checked against elapsed
// time after each retrieve; hitting the boundary exactly still buys one more
// poll, timing out only once the boundary is passed.
package poll
