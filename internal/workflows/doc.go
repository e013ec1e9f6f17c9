// Package workflows composes the API clients, the poll driver, and the job
// registry into the end-to-end flows the CLI and HTTP surfaces expose.
//
// Every video flow runs the same outline: call the API, optionally drive the
// job to a terminal status, record the snapshot locally, and download
// finished content when asked. The recording step deliberately differs per
// flow. Create records before downloading, remix records after the download,
// and retrieve either saves a fresh file or rewrites the job file it was
// pointed at.
package workflows
