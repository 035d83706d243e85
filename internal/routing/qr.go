package routing

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"rsc.io/qr"

	"github.com/jonathan/footwear-triage/internal/types"
)

// EncodeQR renders the JSON payload as a QR code and returns the PNG as
// standard base64. The encoded text is exactly the persisted payload.
func EncodeQR(p *types.RoutingPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal routing payload: %w", err)
	}

	code, err := qr.Encode(string(data), qr.M)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR: %w", err)
	}

	return base64.StdEncoding.EncodeToString(code.PNG()), nil
}
