// Package routing maps an assessment's suggestion to a physical disposition
// and records a trackable logistics payload for items leaving resale.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/footwear-triage/internal/types"
)

// Store persists logistics records.
type Store interface {
	CreateLogisticsRecord(ctx context.Context, itemID uuid.UUID, route string, payload []byte) error
}

// Engine routes analyzed items. Timestamps it issues never decrease, even if
// the wall clock steps backwards.
type Engine struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	lastTS int64
}

// NewEngine creates a routing engine backed by store.
func NewEngine(store Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger, now: time.Now}
}

// Route returns nil for resale. For donate and recycle it builds the payload,
// persists it, and returns it for QR encoding.
func (e *Engine) Route(ctx context.Context, itemID uuid.UUID, suggestion types.Suggestion) (*types.RoutingPayload, error) {
	if !suggestion.Valid() {
		return nil, fmt.Errorf("cannot route unknown suggestion %q", suggestion)
	}
	if !suggestion.NeedsRouting() {
		return nil, nil
	}

	p := &types.RoutingPayload{
		ItemID: itemID,
		Route:  types.RouteFor(suggestion),
		TS:     e.timestamp(),
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal routing payload: %w", err)
	}

	if err := e.store.CreateLogisticsRecord(ctx, itemID, p.Route, data); err != nil {
		return nil, fmt.Errorf("failed to create logistics record: %w", err)
	}

	e.logger.Info("item routed",
		zap.String("item_id", itemID.String()),
		zap.String("route", p.Route),
	)
	return p, nil
}

func (e *Engine) timestamp() int64 {
	ts := e.now().Unix()

	e.mu.Lock()
	defer e.mu.Unlock()
	if ts < e.lastTS {
		ts = e.lastTS
	}
	e.lastTS = ts
	return ts
}
