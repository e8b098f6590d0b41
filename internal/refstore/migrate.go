// ABOUTME: Bulk transfer between the legacy JSON file format and a live Store
// ABOUTME: MigrateFromFile loads legacy records into the store, ExportToFile snapshots it out

package refstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// MigrateFromFile reads a legacy JSON file and upserts every record into the
// store. A missing file is not an error (count 0). The whole file is decoded
// before any write, so a malformed record means nothing is migrated; a store
// write failure mid-way leaves the records already written in place and
// reports how many landed.
func MigrateFromFile(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("migration file not found, skipping", "path", path)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading migration file: %w", err)
	}

	refs, err := decodeLegacyFile(data)
	if err != nil {
		return 0, err
	}

	count := 0
	for id, ref := range refs {
		if err := store.Upsert(ctx, id, ref); err != nil {
			return count, fmt.Errorf("migrating conversation %s: %w", id, err)
		}
		count++
	}

	slog.Info("migrated conversation references", "path", path, "count", count)
	return count, nil
}

// ExportToFile snapshots the store and writes it to path in the legacy JSON
// format, overwriting any existing file.
func ExportToFile(ctx context.Context, store Store, path string) (int, error) {
	refs, err := store.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing conversation references: %w", err)
	}

	data, err := encodeLegacyFile(refs)
	if err != nil {
		return 0, fmt.Errorf("encoding export: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, fmt.Errorf("writing export file: %w", err)
	}

	slog.Info("exported conversation references", "path", path, "count", len(refs))
	return len(refs), nil
}
