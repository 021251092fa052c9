package tools

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

const (
	NameGetMarketPrice         = "get_market_price"
	NameGetTechnicalIndicators = "get_technical_indicators"
	NameGetPortfolio           = "get_portfolio"
	NameUpdateWatchlist        = "update_watchlist"
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.\-/]{1,15}$`)

func validateSymbol(symbol string) error {
	if symbol == "" {
		return errors.New("symbol is required")
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("symbol %q is not a ticker", symbol)
	}
	return nil
}

type MarketPriceArguments struct {
	Symbol string `json:"symbol" jsonschema:"description=Ticker symbol such as BTC or AAPL"`
}

func (a MarketPriceArguments) Validate() error { return validateSymbol(a.Symbol) }

var (
	knownIndicators = []string{"rsi", "macd", "sma", "ema", "bollinger"}
	knownIntervals  = []string{"1h", "4h", "1d", "1w"}
)

type TechnicalIndicatorsArguments struct {
	Symbol     string   `json:"symbol" jsonschema:"description=Ticker symbol such as BTC or AAPL"`
	Indicators []string `json:"indicators,omitempty" jsonschema:"description=Indicators to compute,enum=rsi,enum=macd,enum=sma,enum=ema,enum=bollinger"`
	Interval   string   `json:"interval,omitempty" jsonschema:"description=Candle interval,enum=1h,enum=4h,enum=1d,enum=1w"`
}

func (a TechnicalIndicatorsArguments) Validate() error {
	if err := validateSymbol(a.Symbol); err != nil {
		return err
	}
	for _, indicator := range a.Indicators {
		if !slices.Contains(knownIndicators, strings.ToLower(indicator)) {
			return fmt.Errorf("unsupported indicator %q", indicator)
		}
	}
	if a.Interval != "" && !slices.Contains(knownIntervals, a.Interval) {
		return fmt.Errorf("unsupported interval %q", a.Interval)
	}
	return nil
}

type PortfolioArguments struct{}

func (PortfolioArguments) Validate() error { return nil }

type WatchlistAction string

const (
	WatchlistAdd    WatchlistAction = "add"
	WatchlistRemove WatchlistAction = "remove"
)

type WatchlistArguments struct {
	Action WatchlistAction `json:"action" jsonschema:"enum=add,enum=remove"`
	Symbol string          `json:"symbol"`
}

func (a WatchlistArguments) Validate() error {
	if a.Action != WatchlistAdd && a.Action != WatchlistRemove {
		return fmt.Errorf("action must be %q or %q", WatchlistAdd, WatchlistRemove)
	}
	return validateSymbol(a.Symbol)
}

// MarketTools is the tool set of the market assistant.
func MarketTools() []Definition {
	return []Definition{
		New[MarketPriceArguments](NameGetMarketPrice, "Look up the latest price and daily change of a ticker"),
		New[TechnicalIndicatorsArguments](NameGetTechnicalIndicators, "Compute technical indicators for a ticker"),
		New[PortfolioArguments](NameGetPortfolio, "Read the current user's portfolio holdings and value"),
		New[WatchlistArguments](NameUpdateWatchlist, "Add a ticker to or remove it from the user's watchlist"),
	}
}
