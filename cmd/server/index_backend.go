package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hexplan.ai/internal/persistence/indexdb"
)

// openRuntimeIndex opens the optional sqlite read model. A nil index is
// valid: every sink method on it is a no-op.
func openRuntimeIndex(dataDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("HEXPLAN_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "plans.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported HEXPLAN_INDEX_BACKEND: %s", backend)
	}
}
