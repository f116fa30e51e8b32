package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

// PricingClient asks the external pricing service for a fare. The coordinator
// never computes fares itself; the returned amount is carried opaquely.
type PricingClient struct {
	Endpoint string
	Client   *http.Client
}

func NewPricingClient(endpoint string) *PricingClient {
	return &PricingClient{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}}
}

func (p *PricingClient) Fare(ctx context.Context, origin, dest models.Coord, distance, duration float64) (float64, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"origin":           origin,
		"destination":      dest,
		"distance_meters":  distance,
		"duration_seconds": duration,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("pricing service status %d", resp.StatusCode)
	}

	var out struct {
		Fare float64 `json:"fare"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Fare, nil
}
