//go:build !unix

package main

import (
	"log/slog"

	"github.com/G-grbz/monwui/internal/indexer"
)

func watchVisibility(*indexer.VisibilityFlag, *slog.Logger) func() {
	return func() {}
}
