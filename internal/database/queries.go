package database

// floorLockKey is the advisory lock serializing writers across replicas
const floorLockKey int64 = 0x666c6f6f72

// Collection queries
const (
	LockFloorSQL = `SELECT pg_advisory_xact_lock($1)`

	SelectCollectionSQL = `
		SELECT records FROM floor_collections WHERE name = $1`

	UpsertCollectionSQL = `
		INSERT INTO floor_collections (name, records, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			records = EXCLUDED.records,
			updated_at = NOW()`

	NextIDSQL = `
		INSERT INTO floor_counters (name, value)
		VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = floor_counters.value + 1
		RETURNING value`
)
