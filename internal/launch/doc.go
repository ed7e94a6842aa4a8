// Package launch interprets the legacy single-dash launch arguments.
//
// Parse separates the arguments this package understands (beta/test, -title,
// -publicip, -servermonitor and the four automation flags) from everything else,
// which is handed on to the cobra command tree.
//
// Classify is a pure function: it turns the argument vector into at most one
// HeadlessInvocation. Run performs that invocation and returns the exit code; the
// caller in package cmd is the only place that terminates the process.
package launch
