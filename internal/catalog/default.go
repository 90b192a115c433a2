package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"time"
)

//go:embed default_catalog.csv
var defaultCatalog []byte

// Default returns the built-in catalog compiled into the binary.
func Default(logger *slog.Logger) (*Dataset, error) {
	profiles, err := Parse(bytes.NewReader(defaultCatalog), logger)
	if err != nil {
		return nil, fmt.Errorf("parsing built-in catalog: %w", err)
	}
	return &Dataset{
		Source:    "builtin",
		FetchedAt: time.Now(),
		Profiles:  profiles,
	}, nil
}
