package primary

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/internal/sources"
	"github.com/rs/zerolog"
)

// Adapter is the full-surface, token-gated vendor adapter. It implements
// sources.Adapter.
type Adapter struct {
	client *Client
	token  string
	stream *quoteStream
}

// New constructs a primary Adapter. An empty token means Available()
// reports false; the caller is expected to still construct the adapter so
// SourceRouter can register it and report it unavailable rather than omit
// it from the roster entirely. When a token is present, a background quote
// stream is started opportunistically; RealtimeQuotes consults it and falls
// back to a synchronous poll whenever the stream is down, stale, or missing
// a requested code.
func New(token string, log zerolog.Logger) *Adapter {
	a := &Adapter{client: NewClient(token, log), token: token}
	if token != "" {
		a.stream = newQuoteStream("wss://push.tushare.pro/quotes", log)
		a.stream.start()
	}
	return a
}

// Close releases the adapter's background resources (rate-limit worker and,
// if running, the quote stream).
func (a *Adapter) Close() {
	a.client.Close()
	if a.stream != nil {
		a.stream.stop()
	}
}

func (a *Adapter) Name() string    { return "primary" }
func (a *Adapter) Available() bool { return a.token != "" }

func (a *Adapter) unavailable(op string) error {
	return domain.NewError(domain.KindUnavailable, a.Name(), op, errors.New("no vendor token configured"))
}

func classifyErr(source, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errRateLimited) {
		return domain.NewError(domain.KindRateLimited, source, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, source, op, err)
	}
	return domain.NewError(domain.KindIO, source, op, err)
}

func (a *Adapter) ListStocks(ctx context.Context) ([]domain.Stock, error) {
	if !a.Available() {
		return nil, a.unavailable("ListStocks")
	}
	resp, err := a.client.call(ctx, "stock_basic", map[string]any{"list_status": "L"},
		"ts_code,symbol,name,industry")
	if err != nil {
		return nil, classifyErr(a.Name(), "ListStocks", err)
	}
	rows := resp.rows()
	out := make([]domain.Stock, 0, len(rows))
	for _, r := range rows {
		tsCode := rawString(r["ts_code"])
		code, exch := sources.SplitTSCode(tsCode)
		out = append(out, domain.Stock{
			Code: code, RawCode: tsCode, Name: rawString(r["name"]),
			Exchange: domain.Exchange(exch), Industry: rawString(r["industry"]),
		})
	}
	return out, nil
}

func (a *Adapter) DailyByDate(ctx context.Context, date string) ([]domain.Candle, error) {
	if !a.Available() {
		return nil, a.unavailable("DailyByDate")
	}
	resp, err := a.client.call(ctx, "daily", map[string]any{"trade_date": compactDate(date)},
		"ts_code,trade_date,open,high,low,close,vol,amount")
	if err != nil {
		return nil, classifyErr(a.Name(), "DailyByDate", err)
	}
	return candlesFromRows(resp.rows()), nil
}

func (a *Adapter) DailyByCode(ctx context.Context, code, start, end string) ([]domain.Candle, error) {
	if !a.Available() {
		return nil, a.unavailable("DailyByCode")
	}
	resp, err := a.client.call(ctx, "daily", map[string]any{
		"ts_code": code, "start_date": compactDate(start), "end_date": compactDate(end),
	}, "ts_code,trade_date,open,high,low,close,vol,amount")
	if err != nil {
		return nil, classifyErr(a.Name(), "DailyByCode", err)
	}
	return candlesFromRows(resp.rows()), nil
}

func candlesFromRows(rows []map[string]jsonRawRow) []domain.Candle {
	out := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		code, _ := sources.SplitTSCode(rawString(r["ts_code"]))
		out = append(out, domain.Candle{
			Code: code, Date: r8ToISO(rawString(r["trade_date"])),
			Open: rawFloat(r["open"]), High: rawFloat(r["high"]), Low: rawFloat(r["low"]), Close: rawFloat(r["close"]),
			Volume: sources.LotsToShares(rawFloat(r["vol"])), Amount: sources.ThousandYuanToYuan(rawFloat(r["amount"])),
		})
	}
	return out
}

func (a *Adapter) FundFlowByDate(ctx context.Context, date string) ([]domain.FundFlow, error) {
	if !a.Available() {
		return nil, a.unavailable("FundFlowByDate")
	}
	resp, err := a.client.call(ctx, "moneyflow", map[string]any{"trade_date": compactDate(date)},
		"ts_code,trade_date,buy_lg_amount,sell_lg_amount,buy_sm_amount,sell_sm_amount,net_mf_amount")
	if err != nil {
		return nil, classifyErr(a.Name(), "FundFlowByDate", err)
	}
	out := make([]domain.FundFlow, 0, len(resp.rows()))
	for _, r := range resp.rows() {
		code, _ := sources.SplitTSCode(rawString(r["ts_code"]))
		large := sources.ThousandYuanToYuan(rawFloat(r["buy_lg_amount"]) - rawFloat(r["sell_lg_amount"]))
		small := sources.ThousandYuanToYuan(rawFloat(r["buy_sm_amount"]) - rawFloat(r["sell_sm_amount"]))
		net := sources.ThousandYuanToYuan(rawFloat(r["net_mf_amount"]))
		var ratio float64
		if denom := large + small; denom != 0 {
			ratio = large / denom
		}
		out = append(out, domain.FundFlow{
			Code: code, Date: r8ToISO(rawString(r["trade_date"])),
			MainFundFlow: net, RetailFundFlow: small, InstitutionalFlow: large, LargeOrderRatio: ratio,
		})
	}
	return out, nil
}

func (a *Adapter) DailyBasicByDate(ctx context.Context, date string) ([]domain.DailyBasic, error) {
	if !a.Available() {
		return nil, a.unavailable("DailyBasicByDate")
	}
	resp, err := a.client.call(ctx, "daily_basic", map[string]any{"trade_date": compactDate(date)},
		"ts_code,trade_date,close,turnover_rate,volume_ratio,pe,pe_ttm,pb,ps,ps_ttm,dv_ratio,dv_ttm,total_share,float_share,free_share,total_mv,circ_mv")
	if err != nil {
		return nil, classifyErr(a.Name(), "DailyBasicByDate", err)
	}
	out := make([]domain.DailyBasic, 0, len(resp.rows()))
	for _, r := range resp.rows() {
		code, _ := sources.SplitTSCode(rawString(r["ts_code"]))
		out = append(out, domain.DailyBasic{
			Code: code, Date: r8ToISO(rawString(r["trade_date"])), Close: rawFloat(r["close"]),
			TurnoverRate: rawFloatPtr(r["turnover_rate"]), VolumeRatio: rawFloatPtr(r["volume_ratio"]),
			PE: rawFloatPtr(r["pe"]), PETTM: rawFloatPtr(r["pe_ttm"]), PB: rawFloatPtr(r["pb"]),
			PS: rawFloatPtr(r["ps"]), PSTTM: rawFloatPtr(r["ps_ttm"]),
			DVRatio: rawFloatPtr(r["dv_ratio"]), DVTTM: rawFloatPtr(r["dv_ttm"]),
			TotalShare: rawFloatPtr(r["total_share"]), FloatShare: rawFloatPtr(r["float_share"]),
			FreeShare: rawFloatPtr(r["free_share"]), TotalMV: rawFloatPtr(r["total_mv"]), CircMV: rawFloatPtr(r["circ_mv"]),
		})
	}
	return out, nil
}

func (a *Adapter) MarketMoneyFlow(ctx context.Context, date string) (domain.MarketMoneyFlow, error) {
	if !a.Available() {
		return domain.MarketMoneyFlow{}, a.unavailable("MarketMoneyFlow")
	}
	resp, err := a.client.call(ctx, "moneyflow_mkt_dc", map[string]any{"trade_date": compactDate(date)}, "")
	if err != nil {
		return domain.MarketMoneyFlow{}, classifyErr(a.Name(), "MarketMoneyFlow", err)
	}
	rows := resp.rows()
	if len(rows) == 0 {
		return domain.MarketMoneyFlow{}, nil
	}
	r := rows[0]
	return domain.MarketMoneyFlow{
		Date: r8ToISO(rawString(r["trade_date"])),
		IndexLevel1: rawFloat(r["close_sh"]), IndexPctChange1: rawFloat(r["pct_change_sh"]),
		IndexLevel2: rawFloat(r["close_sz"]), IndexPctChange2: rawFloat(r["pct_change_sz"]),
		ExtraLarge: domain.FlowBucket{Amount: sources.ThousandYuanToYuan(rawFloat(r["buy_elg_amount"])), Rate: rawFloat(r["buy_elg_amount_rate"])},
		Large:      domain.FlowBucket{Amount: sources.ThousandYuanToYuan(rawFloat(r["buy_lg_amount"])), Rate: rawFloat(r["buy_lg_amount_rate"])},
		Mid:        domain.FlowBucket{Amount: sources.ThousandYuanToYuan(rawFloat(r["buy_md_amount"])), Rate: rawFloat(r["buy_md_amount_rate"])},
		Small:      domain.FlowBucket{Amount: sources.ThousandYuanToYuan(rawFloat(r["buy_sm_amount"])), Rate: rawFloat(r["buy_sm_amount_rate"])},
		Net:        domain.FlowBucket{Amount: sources.ThousandYuanToYuan(rawFloat(r["net_amount"])), Rate: rawFloat(r["net_amount_rate"])},
	}, nil
}

func (a *Adapter) SectorMoneyFlow(ctx context.Context, date string) ([]domain.SectorMoneyFlow, error) {
	if !a.Available() {
		return nil, a.unavailable("SectorMoneyFlow")
	}
	resp, err := a.client.call(ctx, "moneyflow_ind_dc", map[string]any{"trade_date": compactDate(date)}, "")
	if err != nil {
		return nil, classifyErr(a.Name(), "SectorMoneyFlow", err)
	}
	out := make([]domain.SectorMoneyFlow, 0, len(resp.rows()))
	for _, r := range resp.rows() {
		out = append(out, domain.SectorMoneyFlow{
			Date: r8ToISO(rawString(r["trade_date"])), SectorCode: rawString(r["ts_code"]), SectorName: rawString(r["name"]),
			PctChange: rawFloat(r["pct_change"]), Close: rawFloat(r["close"]), Rank: int(rawFloat(r["rank"])),
			ExtraLarge: domain.FlowBucket{Amount: sources.ThousandYuanToYuan(rawFloat(r["buy_elg_amount"]))},
			Large:      domain.FlowBucket{Amount: sources.ThousandYuanToYuan(rawFloat(r["buy_lg_amount"]))},
			Mid:        domain.FlowBucket{Amount: sources.ThousandYuanToYuan(rawFloat(r["buy_md_amount"]))},
			Small:      domain.FlowBucket{Amount: sources.ThousandYuanToYuan(rawFloat(r["buy_sm_amount"]))},
			Net:        domain.FlowBucket{Amount: sources.ThousandYuanToYuan(rawFloat(r["net_amount"]))},
		})
	}
	return out, nil
}

func (a *Adapter) TradeCalendar(ctx context.Context, start, end string) ([]string, error) {
	if !a.Available() {
		return nil, a.unavailable("TradeCalendar")
	}
	resp, err := a.client.call(ctx, "trade_cal", map[string]any{
		"start_date": compactDate(start), "end_date": compactDate(end), "is_open": "1",
	}, "cal_date")
	if err != nil {
		return nil, classifyErr(a.Name(), "TradeCalendar", err)
	}
	out := make([]string, 0, len(resp.rows()))
	for _, r := range resp.rows() {
		out = append(out, r8ToISO(rawString(r["cal_date"])))
	}
	return out, nil
}

func (a *Adapter) AuctionByDate(ctx context.Context, date string, codes []string) ([]domain.AuctionSnapshot, error) {
	if !a.Available() {
		return nil, a.unavailable("AuctionByDate")
	}
	params := map[string]any{"trade_date": compactDate(date)}
	if len(codes) > 0 {
		params["ts_code"] = strings.Join(codes, ",")
	}
	resp, err := a.client.call(ctx, "stk_auction", params,
		"ts_code,trade_date,pre_close,price,vol,amount,turnover_rate,volume_ratio,float_share")
	if err != nil {
		return nil, classifyErr(a.Name(), "AuctionByDate", err)
	}
	out := make([]domain.AuctionSnapshot, 0, len(resp.rows()))
	loc := time.FixedZone("CST", 8*3600)
	for _, r := range resp.rows() {
		code, _ := sources.SplitTSCode(rawString(r["ts_code"]))
		d := r8ToISO(rawString(r["trade_date"]))
		ts, _ := time.ParseInLocation("2006-01-02 15:04:05", d+" 09:26:00", loc)
		out = append(out, domain.AuctionSnapshot{
			Code: code, SnapshotTS: ts, PreClose: rawFloat(r["pre_close"]), Price: rawFloat(r["price"]),
			Vol: sources.LotsToShares(rawFloat(r["vol"])), Amount: sources.ThousandYuanToYuan(rawFloat(r["amount"])),
			TurnoverRate: rawFloat(r["turnover_rate"]), VolumeRatio: rawFloat(r["volume_ratio"]),
			FloatShare: rawFloat(r["float_share"]),
		})
	}
	return out, nil
}

func (a *Adapter) RealtimeQuotes(ctx context.Context, codes []string) ([]domain.Candle, error) {
	if !a.Available() {
		return nil, a.unavailable("RealtimeQuotes")
	}
	if a.stream != nil {
		if quotes, ok := a.stream.snapshot(codes); ok {
			return quotes, nil
		}
	}
	params := map[string]any{}
	if len(codes) > 0 {
		params["ts_code"] = strings.Join(codes, ",")
	}
	resp, err := a.client.call(ctx, "rt_quote", params, "ts_code,trade_date,open,high,low,price,vol,amount")
	if err != nil {
		return nil, classifyErr(a.Name(), "RealtimeQuotes", err)
	}
	out := make([]domain.Candle, 0, len(resp.rows()))
	for _, r := range resp.rows() {
		code, _ := sources.SplitTSCode(rawString(r["ts_code"]))
		out = append(out, domain.Candle{
			Code: code, Date: r8ToISO(rawString(r["trade_date"])),
			Open: rawFloat(r["open"]), High: rawFloat(r["high"]), Low: rawFloat(r["low"]), Close: rawFloat(r["price"]),
			Volume: sources.LotsToShares(rawFloat(r["vol"])), Amount: sources.ThousandYuanToYuan(rawFloat(r["amount"])),
		})
	}
	return out, nil
}

// compactDate converts ISO "2026-07-01" to vendor "20260701"; a value
// already compact passes through unchanged.
func compactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// r8ToISO converts vendor "20260701" back to "2026-07-01".
func r8ToISO(d string) string {
	d = strings.ReplaceAll(d, "-", "")
	if len(d) != 8 {
		return d
	}
	return d[:4] + "-" + d[4:6] + "-" + d[6:8]
}
