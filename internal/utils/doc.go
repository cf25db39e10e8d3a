// Package utils provides shared low-level helpers used throughout the
// voicegraph internals. It covers HTTP request helpers for JSON and
// multipart round-trips with external provider APIs, plus small string
// utilities for safe log output.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips,
// [DoPostMultipart] for file uploads, and [TruncateString] for bounding
// response previews in error messages.
package utils
