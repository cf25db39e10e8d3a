// Package httpapi exposes the voice agent over HTTP. A multipart upload
// runs the full workflow synchronously and returns the terminal state as
// JSON; scheduled jobs created by a run can then be inspected and
// cancelled through the jobs resource.
package httpapi
