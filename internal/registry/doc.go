// Package registry stores one JSON file per render job, named by save time
// so a directory listing doubles as a history.
//
// Files are written with a temp-and-rename so readers never see a partial
// snapshot, and mutations take a file lock so two processes sharing a jobs
// directory cannot collide on a filename. Records pass through verbatim;
// the registry never invents or strips fields.
package registry
