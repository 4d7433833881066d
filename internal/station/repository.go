package station

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultSnapshotLimit = 50
	maxSnapshotLimit     = 200
)

// SnapshotRecord is one persisted station snapshot.
type SnapshotRecord struct {
	ID      string         `json:"id"`
	Station string         `json:"station"`
	TakenAt time.Time      `json:"taken_at"`
	Data    map[string]any `json:"data"`
}

// SnapshotRepository defines the interface for snapshot persistence.
// This abstraction allows for different implementations (SQLite, mock)
// and enables unit testing without database dependencies.
type SnapshotRepository interface {
	// Save persists a snapshot. An empty ID is filled with a new UUID;
	// a zero TakenAt is filled with the current time.
	Save(ctx context.Context, record *SnapshotRecord) error

	// GetByID retrieves a snapshot by its identifier.
	// Returns ErrSnapshotNotFound if the snapshot does not exist.
	GetByID(ctx context.Context, id string) (*SnapshotRecord, error)

	// List returns recent snapshots for a station, newest first.
	List(ctx context.Context, stationName string, limit int) ([]SnapshotRecord, error)

	// Prune deletes snapshots older than the given duration.
	// Returns the number of rows deleted.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteSnapshotRepository implements SnapshotRepository using SQLite.
//
// Snapshots are stored as JSON in the station_snapshots table.
type SQLiteSnapshotRepository struct {
	db *sql.DB
}

// NewSQLiteSnapshotRepository creates a new SQLite-backed snapshot
// repository. The db parameter should be an open SQLite connection.
func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

// Save persists a snapshot.
func (r *SQLiteSnapshotRepository) Save(ctx context.Context, record *SnapshotRecord) error {
	if record.Station == "" {
		return fmt.Errorf("station name is required")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.TakenAt.IsZero() {
		record.TakenAt = time.Now().UTC()
	}
	if record.Data == nil {
		record.Data = map[string]any{}
	}

	dataJSON, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO station_snapshots (id, station, taken_at, data) VALUES (?, ?, ?, ?)",
		record.ID,
		record.Station,
		record.TakenAt.Format(time.RFC3339Nano),
		string(dataJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	return nil
}

// GetByID retrieves a snapshot by its identifier.
func (r *SQLiteSnapshotRepository) GetByID(ctx context.Context, id string) (*SnapshotRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, station, taken_at, data FROM station_snapshots WHERE id = ?",
		id,
	)

	record, err := scanSnapshot(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrSnapshotNotFound, id)
		}
		return nil, fmt.Errorf("querying snapshot by id: %w", err)
	}
	return record, nil
}

// List returns recent snapshots for a station, newest first.
func (r *SQLiteSnapshotRepository) List(ctx context.Context, stationName string, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	if limit > maxSnapshotLimit {
		limit = maxSnapshotLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, station, taken_at, data
		 FROM station_snapshots
		 WHERE station = ?
		 ORDER BY taken_at DESC
		 LIMIT ?`,
		stationName,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	records := make([]SnapshotRecord, 0, limit)
	for rows.Next() {
		record, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}

	return records, nil
}

// Prune deletes snapshots older than the given duration.
func (r *SQLiteSnapshotRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM station_snapshots WHERE taken_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting snapshots: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// scanSnapshot scans one snapshot row using the provided scan function.
func scanSnapshot(scan func(dest ...any) error) (*SnapshotRecord, error) {
	var record SnapshotRecord
	var takenAt string
	var dataJSON string

	if err := scan(&record.ID, &record.Station, &takenAt, &dataJSON); err != nil {
		return nil, err
	}

	timestamp, err := time.Parse(time.RFC3339Nano, takenAt)
	if err != nil {
		return nil, fmt.Errorf("parsing taken_at: %w", err)
	}
	record.TakenAt = timestamp

	if err := json.Unmarshal([]byte(dataJSON), &record.Data); err != nil {
		return nil, fmt.Errorf("unmarshalling snapshot data: %w", err)
	}

	return &record, nil
}
