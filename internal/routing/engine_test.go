package routing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/footwear-triage/internal/types"
)

type logisticsRecord struct {
	itemID  uuid.UUID
	route   string
	payload []byte
}

// mockStore records logistics inserts
type mockStore struct {
	mu      sync.Mutex
	records []logisticsRecord
	err     error
}

func (m *mockStore) CreateLogisticsRecord(_ context.Context, itemID uuid.UUID, route string, payload []byte) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, logisticsRecord{itemID, route, payload})
	return nil
}

func TestRoute_Resale(t *testing.T) {
	store := &mockStore{}
	e := NewEngine(store, nil)

	p, err := e.Route(context.Background(), uuid.New(), types.SuggestionResale)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Empty(t, store.records)
}

func TestRoute_DonateAndRecycle(t *testing.T) {
	tests := []struct {
		suggestion types.Suggestion
		route      string
	}{
		{types.SuggestionDonate, types.RouteDonate},
		{types.SuggestionRecycle, types.RouteRecycle},
	}

	for _, tt := range tests {
		t.Run(string(tt.suggestion), func(t *testing.T) {
			store := &mockStore{}
			e := NewEngine(store, nil)
			e.now = func() time.Time { return time.Unix(1700000000, 0) }
			id := uuid.New()

			p, err := e.Route(context.Background(), id, tt.suggestion)
			require.NoError(t, err)
			require.NotNil(t, p)

			assert.Equal(t, id, p.ItemID)
			assert.Equal(t, tt.route, p.Route)
			assert.Equal(t, int64(1700000000), p.TS)

			require.Len(t, store.records, 1)
			assert.Equal(t, id, store.records[0].itemID)
			assert.Equal(t, tt.route, store.records[0].route)
			assert.JSONEq(t,
				`{"item_id":"`+id.String()+`","route":"`+tt.route+`","ts":1700000000}`,
				string(store.records[0].payload))
		})
	}
}

func TestRoute_InvalidSuggestion(t *testing.T) {
	_, err := NewEngine(&mockStore{}, nil).Route(context.Background(), uuid.New(), "sell")
	assert.Error(t, err)
}

func TestRoute_StoreError(t *testing.T) {
	store := &mockStore{err: errors.New("db down")}
	_, err := NewEngine(store, nil).Route(context.Background(), uuid.New(), types.SuggestionDonate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestRoute_TimestampNeverDecreases(t *testing.T) {
	clock := []int64{100, 105, 90, 90, 110}
	i := 0
	e := NewEngine(&mockStore{}, nil)
	e.now = func() time.Time {
		ts := clock[i]
		i++
		return time.Unix(ts, 0)
	}

	var got []int64
	for range clock {
		p, err := e.Route(context.Background(), uuid.New(), types.SuggestionRecycle)
		require.NoError(t, err)
		got = append(got, p.TS)
	}
	assert.Equal(t, []int64{100, 105, 105, 105, 110}, got)
}

func TestEncodeQR(t *testing.T) {
	p := &types.RoutingPayload{ItemID: uuid.New(), Route: types.RouteRecycle, TS: 1700000000}

	b64, err := EncodeQR(p)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 20)
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy())

	// payload round-trips through the same encoding that was rendered
	data, err := json.Marshal(p)
	require.NoError(t, err)
	var back types.RoutingPayload
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *p, back)
}
