//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"

	"github.com/google/uuid"
)

// Route values carried in the logistics payload
const (
	RouteDonate  = "DONATE"
	RouteRecycle = "RECYCLE"
)

// RouteFor returns the logistics route for a suggestion.
func RouteFor(s Suggestion) string {
	return strings.ToUpper(string(s))
}

// RoutingPayload is both the persisted logistics payload and the QR content.
type RoutingPayload struct {
	ItemID uuid.UUID `json:"item_id"`
	Route  string    `json:"route"`
	TS     int64     `json:"ts"`
}
