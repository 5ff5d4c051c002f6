// Package secondary implements the reduced-surface, no-token fallback
// adapter (the AKShare-style public scraping endpoints): stock list, candle
// by date, fund-flow by date, daily-basic by date, realtime quotes. Every
// other capability reports Unavailable per the adapter contract.
package secondary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/internal/sources"
	"github.com/rs/zerolog"
)

// Adapter is the secondary, always-available (no token) vendor adapter.
type Adapter struct {
	httpClient *http.Client
	baseURL    string
	log        zerolog.Logger
}

// New constructs a secondary Adapter. Unlike primary, it requires no token:
// AKShare's public endpoints are unauthenticated.
func New(log zerolog.Logger) *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://push2.eastmoney.com",
		log:        log.With().Str("component", "secondary-source").Logger(),
	}
}

func (a *Adapter) Name() string    { return "secondary" }
func (a *Adapter) Available() bool { return true }

func unavailableErr(op string) error {
	return domain.NewError(domain.KindUnavailable, "secondary", op,
		fmt.Errorf("secondary source does not implement %s", op))
}

func (a *Adapter) get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, domain.NewError(domain.KindIO, a.Name(), path, err)
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.KindIO, a.Name(), path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.NewError(domain.KindRateLimited, a.Name(), path, fmt.Errorf("http 429"))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.KindIO, a.Name(), path, err)
	}
	return body, nil
}

// eastmoneyRow is the flat key/value record shape of eastmoney's push2
// snapshot endpoints (field codes like f12=code, f14=name, f2=price).
type eastmoneyRow map[string]json.Number

func (a *Adapter) ListStocks(ctx context.Context) ([]domain.Stock, error) {
	body, err := a.get(ctx, "/api/qt/clist/get", map[string]string{
		"pn": "1", "pz": "6000", "fs": "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23",
		"fields": "f12,f14,f100",
	})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			Diff []struct {
				F12 string `json:"f12"`
				F14 string `json:"f14"`
				F100 string `json:"f100"`
			} `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, domain.NewError(domain.KindFormatError, a.Name(), "ListStocks", err)
	}
	out := make([]domain.Stock, 0, len(decoded.Data.Diff))
	for _, row := range decoded.Data.Diff {
		exch := "secondary"
		if strings.HasPrefix(row.F12, "6") {
			exch = "primary"
		}
		out = append(out, domain.Stock{
			Code: row.F12, RawCode: row.F12, Name: row.F14, Exchange: domain.Exchange(exch), Industry: row.F100,
		})
	}
	return out, nil
}

func (a *Adapter) DailyByDate(ctx context.Context, date string) ([]domain.Candle, error) {
	body, err := a.get(ctx, "/api/qt/clist/get", map[string]string{
		"pn": "1", "pz": "6000", "fs": "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23",
		"fields": "f12,f2,f3,f15,f16,f17,f5,f6",
	})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			Diff []struct {
				F12 string      `json:"f12"`
				F2  json.Number `json:"f2"`  // latest (close)
				F15 json.Number `json:"f15"` // high
				F16 json.Number `json:"f16"` // low
				F17 json.Number `json:"f17"` // open
				F5  json.Number `json:"f5"`  // volume (shares, already)
				F6  json.Number `json:"f6"`  // amount (yuan, already)
			} `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, domain.NewError(domain.KindFormatError, a.Name(), "DailyByDate", err)
	}
	out := make([]domain.Candle, 0, len(decoded.Data.Diff))
	for _, row := range decoded.Data.Diff {
		out = append(out, domain.Candle{
			Code: row.F12, Date: date,
			Open: numOr(row.F17), High: numOr(row.F15), Low: numOr(row.F16), Close: numOr(row.F2),
			Volume: numOr(row.F5), Amount: numOr(row.F6),
		})
	}
	return out, nil
}

func (a *Adapter) DailyByCode(ctx context.Context, code, start, end string) ([]domain.Candle, error) {
	return nil, unavailableErr("DailyByCode")
}

func (a *Adapter) FundFlowByDate(ctx context.Context, date string) ([]domain.FundFlow, error) {
	body, err := a.get(ctx, "/api/qt/clist/get", map[string]string{
		"pn": "1", "pz": "6000", "fs": "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23",
		"fields": "f12,f62,f184",
	})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			Diff []struct {
				F12  string      `json:"f12"`
				F62  json.Number `json:"f62"`  // main net inflow, yuan
				F184 json.Number `json:"f184"` // main net inflow rate, percent
			} `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, domain.NewError(domain.KindFormatError, a.Name(), "FundFlowByDate", err)
	}
	out := make([]domain.FundFlow, 0, len(decoded.Data.Diff))
	for _, row := range decoded.Data.Diff {
		out = append(out, domain.FundFlow{
			Code: row.F12, Date: date, MainFundFlow: numOr(row.F62),
			LargeOrderRatio: numOr(row.F184) / 100,
		})
	}
	return out, nil
}

func (a *Adapter) DailyBasicByDate(ctx context.Context, date string) ([]domain.DailyBasic, error) {
	body, err := a.get(ctx, "/api/qt/clist/get", map[string]string{
		"pn": "1", "pz": "6000", "fs": "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23",
		"fields": "f12,f2,f8,f10,f9,f20,f21",
	})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			Diff []struct {
				F12 string      `json:"f12"`
				F2  json.Number `json:"f2"`  // close
				F8  json.Number `json:"f8"`  // turnover rate, percent
				F10 json.Number `json:"f10"` // volume ratio
				F9  json.Number `json:"f9"`  // pe (dynamic)
				F20 json.Number `json:"f20"` // total market value
				F21 json.Number `json:"f21"` // circulating market value
			} `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, domain.NewError(domain.KindFormatError, a.Name(), "DailyBasicByDate", err)
	}
	out := make([]domain.DailyBasic, 0, len(decoded.Data.Diff))
	for _, row := range decoded.Data.Diff {
		tr := numOr(row.F8) / 100
		vr := numOr(row.F10)
		pe := numOr(row.F9)
		tmv := numOr(row.F20)
		cmv := numOr(row.F21)
		out = append(out, domain.DailyBasic{
			Code: row.F12, Date: date, Close: numOr(row.F2),
			TurnoverRate: &tr, VolumeRatio: &vr, PE: &pe, TotalMV: &tmv, CircMV: &cmv,
		})
	}
	return out, nil
}

func (a *Adapter) MarketMoneyFlow(ctx context.Context, date string) (domain.MarketMoneyFlow, error) {
	return domain.MarketMoneyFlow{}, unavailableErr("MarketMoneyFlow")
}

func (a *Adapter) SectorMoneyFlow(ctx context.Context, date string) ([]domain.SectorMoneyFlow, error) {
	return nil, unavailableErr("SectorMoneyFlow")
}

func (a *Adapter) TradeCalendar(ctx context.Context, start, end string) ([]string, error) {
	return nil, unavailableErr("TradeCalendar")
}

func (a *Adapter) AuctionByDate(ctx context.Context, date string, codes []string) ([]domain.AuctionSnapshot, error) {
	return nil, unavailableErr("AuctionByDate")
}

func (a *Adapter) RealtimeQuotes(ctx context.Context, codes []string) ([]domain.Candle, error) {
	// codes is an optional narrowing hint; the underlying snapshot endpoint
	// always returns the full universe, so results are filtered after decode.
	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	body, err := a.get(ctx, "/api/qt/clist/get", map[string]string{
		"pn": "1", "pz": "6000", "fs": "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23",
		"fields": "f12,f2,f15,f16,f17,f5,f6",
	})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			Diff []struct {
				F12 string      `json:"f12"`
				F2  json.Number `json:"f2"`
				F15 json.Number `json:"f15"`
				F16 json.Number `json:"f16"`
				F17 json.Number `json:"f17"`
				F5  json.Number `json:"f5"`
				F6  json.Number `json:"f6"`
			} `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, domain.NewError(domain.KindFormatError, a.Name(), "RealtimeQuotes", err)
	}
	today := time.Now().Format("2006-01-02")
	out := make([]domain.Candle, 0, len(decoded.Data.Diff))
	for _, row := range decoded.Data.Diff {
		if len(wanted) > 0 && !wanted[row.F12] {
			continue
		}
		out = append(out, domain.Candle{
			Code: row.F12, Date: today,
			Open: numOr(row.F17), High: numOr(row.F15), Low: numOr(row.F16), Close: numOr(row.F2),
			Volume: numOr(row.F5), Amount: numOr(row.F6),
		})
	}
	return out, nil
}

func numOr(n json.Number) float64 {
	f, _ := n.Float64()
	return f
}

var _ sources.Adapter = (*Adapter)(nil)
