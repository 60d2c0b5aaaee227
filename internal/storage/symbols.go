package storage

import (
	"fmt"
	"strings"

	"casegen/internal/common/config"
	"casegen/internal/placement"
)

// SymbolLibrary resolves the long-lived public URLs of published symbol
// drawings in secondary storage. Symbols are never copied into the job's
// bucket; the remote engine fetches them from the library directly.
type SymbolLibrary struct {
	baseURL         string
	placeholderPath string
}

func NewSymbolLibrary(cfg config.SymbolLibraryConfig) *SymbolLibrary {
	return &SymbolLibrary{
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		placeholderPath: strings.TrimPrefix(cfg.PlaceholderPath, "/"),
	}
}

// URLFor returns the public URL of a symbol resource's drawing.
func (l *SymbolLibrary) URLFor(res placement.SymbolResource) string {
	return fmt.Sprintf("%s/%s", l.baseURL, strings.TrimPrefix(res.StoragePath, "/"))
}

// PlaceholderURL returns the public URL of the shared placeholder drawing,
// substituted for every product without a stored symbol.
func (l *SymbolLibrary) PlaceholderURL() string {
	return fmt.Sprintf("%s/%s", l.baseURL, l.placeholderPath)
}

// PlaceholderLocalName is the filename the placeholder is staged under.
func (l *SymbolLibrary) PlaceholderLocalName() string {
	return placement.LocalNameOf(l.placeholderPath)
}
