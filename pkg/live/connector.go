package live

import (
	"context"

	"github.com/spotlight-go/spotlight/pkg/gemini"
	"github.com/spotlight-go/spotlight/pkg/live/protocol"
)

type geminiConnector struct {
	host    string
	baseURL string
}

// NewGeminiConnector returns a Connector dialing the live inference service.
// An empty host selects the production endpoint.
func NewGeminiConnector(host string) Connector {
	return &geminiConnector{host: host}
}

// NewGeminiConnectorURL returns a Connector dialing a fully specified
// WebSocket endpoint. Used against in-process test servers.
func NewGeminiConnectorURL(baseURL string) Connector {
	return &geminiConnector{baseURL: baseURL}
}

func (g *geminiConnector) Connect(ctx context.Context, apiKey string, setup protocol.Setup) (RemoteSession, error) {
	client := &gemini.Client{APIKey: apiKey, Host: g.host, BaseURL: g.baseURL}
	session, err := client.Connect(ctx, setup)
	if err != nil {
		return nil, err
	}
	return session, nil
}
