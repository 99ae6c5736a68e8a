package xmlcatalog

import (
	"fmt"
	"sync"

	"github.com/jacoelho/xmlcatalog/config"
)

var defaultResolver = sync.OnceValues(func() (*Resolver, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("default resolver: %w", err)
	}
	return New(NewOptions().WithConfig(cfg))
})

// Default returns the process-wide resolver configured from the user config
// file and the XML_CATALOG_* environment variables. It is built once, on
// first use; later calls return the same resolver or the same error.
func Default() (*Resolver, error) {
	return defaultResolver()
}
