// Package google holds what the Google Drive file sources share: API
// client construction, error classification and request rate limiting.
//
// The drive sub-package lists and downloads through the Drive v3 API.
// The publicshare connector reuses the rate limiter for the web endpoints
// of a public folder.
package google
