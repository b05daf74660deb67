package service_test

import (
	"io"
	"log/slog"
)

// discardLogger returns a logger whose output goes nowhere, keeping test
// output readable.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
