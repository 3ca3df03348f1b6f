package driven

import "context"

// CommandRunner executes an external program and returns its stdout.
// Extractors and OCR engines that shell out to CLI tools accept one so
// tests can substitute canned output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
