// Package email sends the summary email through a Resend-compatible HTTP
// API. It renders the HTML body from the summary template and derives a
// plain-text alternative part by converting that HTML to markdown, so every
// message carries both representations.
package email
