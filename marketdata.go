package brokerage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goliatone/go-brokerage/core"
	"github.com/goliatone/go-brokerage/validation"
)

// GetQuotes returns real-time quotes for one or more symbols.
func (c *Client) GetQuotes(ctx context.Context, symbols ...string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	joined := validation.JoinList(symbols)
	if joined == "" {
		return nil, argumentError("symbols", "at least one symbol is required")
	}
	return c.get(ctx, "marketdata/quotes", map[string]string{
		"apikey": c.clientID(),
		"symbol": joined,
	})
}

// PriceHistoryRequest selects candles for a symbol. StartDate and EndDate are
// epoch milliseconds and cannot be combined with Period.
type PriceHistoryRequest struct {
	Symbol string
	validation.PriceHistoryQuery
	StartDate     int64
	EndDate       int64
	ExtendedHours *bool
}

func (c *Client) GetPriceHistory(ctx context.Context, req PriceHistoryRequest) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	symbol, err := requireArgument("symbol", req.Symbol)
	if err != nil {
		return nil, err
	}
	if req.Period > 0 && req.StartDate > 0 && req.EndDate > 0 {
		return nil, argumentError("period", "period cannot be combined with a start and end date")
	}
	if req.StartDate == 0 && req.EndDate == 0 {
		if err := validation.ValidatePriceHistory(req.PriceHistoryQuery); err != nil {
			return nil, err
		}
	}

	params := map[string]string{
		"apikey":        c.clientID(),
		"periodType":    req.PeriodType,
		"frequencyType": req.FrequencyType,
	}
	setInt(params, "period", int64(req.Period))
	setInt(params, "frequency", int64(req.Frequency))
	setInt(params, "startDate", req.StartDate)
	setInt(params, "endDate", req.EndDate)
	if req.ExtendedHours != nil {
		params["needExtendedHoursData"] = strconv.FormatBool(*req.ExtendedHours)
	}
	return c.get(ctx, fmt.Sprintf("marketdata/%s/pricehistory", url.PathEscape(symbol)), params)
}

// SearchInstruments searches by symbol or description. An empty projection
// uses symbol-search.
func (c *Client) SearchInstruments(ctx context.Context, symbol string, projection string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	symbol, err := requireArgument("symbol", symbol)
	if err != nil {
		return nil, err
	}
	if projection == "" {
		projection = "symbol-search"
	}
	if err := c.validate(validation.EndpointSearchInstruments, validation.ParameterProjection, projection); err != nil {
		return nil, err
	}
	return c.get(ctx, "instruments", map[string]string{
		"apikey":     c.clientID(),
		"symbol":     symbol,
		"projection": projection,
	})
}

func (c *Client) GetInstrument(ctx context.Context, cusip string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	cusip, err := requireArgument("cusip", cusip)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "instruments/"+url.PathEscape(cusip), map[string]string{
		"apikey": c.clientID(),
	})
}

// GetMarketHours returns the hours for the given markets on date (yyyy-MM-dd).
func (c *Client) GetMarketHours(ctx context.Context, markets []string, date string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, argumentError("markets", "at least one market is required")
	}
	if err := c.validate(validation.EndpointGetMarketHours, validation.ParameterMarkets, markets...); err != nil {
		return nil, err
	}
	return c.get(ctx, "marketdata/hours", map[string]string{
		"apikey":  c.clientID(),
		"markets": validation.JoinList(markets),
		"date":    date,
	})
}

func (c *Client) GetMovers(ctx context.Context, market string, direction string, change string) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := c.validate(validation.EndpointGetMovers, validation.ParameterMarket, market); err != nil {
		return nil, err
	}
	if err := c.validate(validation.EndpointGetMovers, validation.ParameterDirection, direction); err != nil {
		return nil, err
	}
	if err := c.validate(validation.EndpointGetMovers, validation.ParameterChange, change); err != nil {
		return nil, err
	}
	return c.get(ctx, fmt.Sprintf("marketdata/%s/movers", url.PathEscape(market)), map[string]string{
		"apikey":    c.clientID(),
		"direction": direction,
		"change":    change,
	})
}

// OptionChainRequest mirrors the option chain query parameters. Zero values
// are omitted from the request.
type OptionChainRequest struct {
	Symbol           string
	ContractType     string
	StrikeCount      int
	IncludeQuotes    bool
	Strategy         string
	Interval         float64
	Strike           float64
	Range            string
	FromDate         string
	ToDate           string
	Volatility       float64
	UnderlyingPrice  float64
	InterestRate     float64
	DaysToExpiration int
	ExpMonth         string
	OptionType       string
}

func (r OptionChainRequest) validate(table validation.Table) error {
	checks := []struct {
		parameter validation.Parameter
		value     string
	}{
		{validation.ParameterContractType, r.ContractType},
		{validation.ParameterStrategy, r.Strategy},
		{validation.ParameterRange, r.Range},
		{validation.ParameterOptionType, r.OptionType},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		if err := table.Validate(validation.EndpointGetOptionChain, check.parameter, check.value); err != nil {
			return err
		}
	}
	return nil
}

func (r OptionChainRequest) params(apiKey string) map[string]string {
	params := map[string]string{
		"apikey":       apiKey,
		"symbol":       r.Symbol,
		"contractType": r.ContractType,
		"strategy":     r.Strategy,
		"range":        r.Range,
		"fromDate":     r.FromDate,
		"toDate":       r.ToDate,
		"expMonth":     r.ExpMonth,
		"optionType":   r.OptionType,
	}
	setInt(params, "strikeCount", int64(r.StrikeCount))
	setInt(params, "daysToExpiration", int64(r.DaysToExpiration))
	setFloat(params, "interval", r.Interval)
	setFloat(params, "strike", r.Strike)
	setFloat(params, "volatility", r.Volatility)
	setFloat(params, "underlyingPrice", r.UnderlyingPrice)
	setFloat(params, "interestRate", r.InterestRate)
	if r.IncludeQuotes {
		params["includeQuotes"] = "TRUE"
	}
	return params
}

func (c *Client) GetOptionChain(ctx context.Context, req OptionChainRequest) (*core.DispatchResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if _, err := requireArgument("symbol", req.Symbol); err != nil {
		return nil, err
	}
	if err := req.validate(c.table); err != nil {
		return nil, err
	}
	return c.get(ctx, "marketdata/chains", req.params(c.clientID()))
}

func setInt(params map[string]string, key string, value int64) {
	if value != 0 {
		params[key] = strconv.FormatInt(value, 10)
	}
}

func setFloat(params map[string]string, key string, value float64) {
	if value != 0 {
		params[key] = strconv.FormatFloat(value, 'f', -1, 64)
	}
}
