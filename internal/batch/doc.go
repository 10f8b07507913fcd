// Package batch runs processing rounds: it discovers pending prompt files,
// sends each one to the configured generator, writes the replies to the
// output directory and records which files are done.
//
// Rounds are strictly sequential and only one prompt is in flight at a time.
// A failing file never aborts the round; it is logged, left unmarked so the
// next round retries it, and counted by the FailureTracker.
package batch
