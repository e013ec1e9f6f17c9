// Package sora calls the OpenAI video generation endpoints.
//
// The client covers the five operations the rest of the tool builds on:
// creating a render, retrieving one, remixing a finished render into a new
// job, deleting a remote render, and downloading finished content. Job
// snapshots come back as job.Record values so fields this build does not
// know about survive the round trip into the local registry.
package sora
