package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryParsesValidArguments(t *testing.T) {
	registry := NewRegistry(MarketTools()...)

	arguments, err := registry.Parse(NameGetMarketPrice, json.RawMessage(`{"symbol":"BTC"}`))
	require.NoError(t, err)
	require.Equal(t, MarketPriceArguments{Symbol: "BTC"}, arguments)

	arguments, err = registry.Parse(NameGetPortfolio, nil)
	require.NoError(t, err)
	require.Equal(t, PortfolioArguments{}, arguments)

	arguments, err = registry.Parse(NameUpdateWatchlist, json.RawMessage(`{"action":"add","symbol":"ETH"}`))
	require.NoError(t, err)
	require.Equal(t, WatchlistArguments{Action: WatchlistAdd, Symbol: "ETH"}, arguments)
}

func TestRegistryRejectsInvalidArguments(t *testing.T) {
	registry := NewRegistry(MarketTools()...)

	tests := []struct {
		name string
		tool string
		raw  string
	}{
		{name: "missing symbol", tool: NameGetMarketPrice, raw: `{}`},
		{name: "not json", tool: NameGetMarketPrice, raw: `{not json`},
		{name: "unknown field", tool: NameGetMarketPrice, raw: `{"symbol":"BTC","exchange":"x"}`},
		{name: "wrong type", tool: NameGetMarketPrice, raw: `{"symbol":42}`},
		{name: "bad indicator", tool: NameGetTechnicalIndicators, raw: `{"symbol":"BTC","indicators":["astrology"]}`},
		{name: "bad interval", tool: NameGetTechnicalIndicators, raw: `{"symbol":"BTC","interval":"3m"}`},
		{name: "bad action", tool: NameUpdateWatchlist, raw: `{"action":"toggle","symbol":"BTC"}`},
		{name: "trailing data", tool: NameGetPortfolio, raw: `{} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Parse(tt.tool, json.RawMessage(tt.raw))
			require.ErrorIs(t, err, ErrInvalidArguments)
		})
	}
}

func TestRegistryRejectsUnknownTool(t *testing.T) {
	_, err := NewRegistry(MarketTools()...).Parse("launch_rocket", json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrUnknownTool)

	var registry *Registry
	_, err = registry.Parse(NameGetPortfolio, nil)
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistrySpecsAdvertiseSchemas(t *testing.T) {
	specs := NewRegistry(MarketTools()...).Specs()
	require.Len(t, specs, 4)
	require.Equal(t, NameGetMarketPrice, specs[0].Name)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(specs[0].Parameters, &schema))
	require.Equal(t, "object", schema["type"])
	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, properties, "symbol")
	require.NotContains(t, schema, "$schema")
}

func TestHTTPExecutor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ToolName  string          `json:"toolName"`
			Arguments json.RawMessage `json:"arguments"`
			Identity  string          `json:"identity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch req.ToolName {
		case NameGetMarketPrice:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"succeeded": true,
				"output":    map[string]any{"symbol": "BTC", "price": 64000.5, "identity": req.Identity, "args": req.Arguments},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"succeeded": false, "errorMessage": "unknown tool " + req.ToolName})
		}
	}))
	defer server.Close()

	executor := NewHTTPExecutor(server.URL)

	output, err := executor.Execute(context.Background(), Invocation{
		CallID:    "a",
		Name:      NameGetMarketPrice,
		Arguments: MarketPriceArguments{Symbol: "BTC"},
		Identity:  "user-1",
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"symbol":"BTC","price":64000.5,"identity":"user-1","args":{"symbol":"BTC"}}`, string(output))

	_, err = executor.Execute(context.Background(), Invocation{CallID: "b", Name: "launch_rocket", Arguments: PortfolioArguments{}})
	require.ErrorIs(t, err, ErrToolFailed)
	require.ErrorContains(t, err, "unknown tool launch_rocket")
}

func TestHTTPExecutorNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTPExecutor(server.URL).Execute(context.Background(), Invocation{Name: NameGetPortfolio, Arguments: PortfolioArguments{}})
	require.ErrorContains(t, err, "502")
}
