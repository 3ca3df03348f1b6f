// Package connectors provides the file sources a run can list and fetch
// from. Each implements driven.FileSource:
//
//   - google/drive: the Google Drive v3 API
//   - publicshare: the web pages of a publicly shared Drive folder
//   - filesystem: a local directory tree
//
// cmd/folio selects one from source.kind in the configuration.
package connectors
