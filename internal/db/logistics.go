package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Logistics Record Methods
// -----------------------------------------------------------------------------

// CreateLogisticsRecord stores the routing payload for an item
func (db *DB) CreateLogisticsRecord(ctx context.Context, itemID uuid.UUID, route string, payload []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO logistics_records (item_id, route, qr_payload) VALUES ($1, $2, $3)`,
		itemID, route, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to create logistics record: %w", err)
	}
	return nil
}

// ListLogisticsRecords returns the logistics records for an item, oldest first
func (db *DB) ListLogisticsRecords(ctx context.Context, itemID uuid.UUID) ([]LogisticsRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, item_id, route, qr_payload, created_at
		 FROM logistics_records WHERE item_id = $1 ORDER BY created_at`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list logistics records: %w", err)
	}
	defer rows.Close()

	var records []LogisticsRecord
	for rows.Next() {
		var r LogisticsRecord
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Route, &r.QRPayload, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
