package rpc

import "context"

// DaemonClient answers chain-state queries against the daemon's RPC surface.
type DaemonClient struct {
	client *Client
}

func NewDaemonClient(url string) *DaemonClient {
	return &DaemonClient{client: New(url, "", "")}
}

type getInfoResult struct {
	Height uint64 `json:"height"`
}

// Height returns the daemon's current chain height.
func (d *DaemonClient) Height(ctx context.Context) (uint64, error) {
	var res getInfoResult
	if err := d.client.Call(ctx, "get_info", nil, &res); err != nil {
		return 0, err
	}
	return res.Height, nil
}
