package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stocksim-backend/internal/application/pricesync"
	"stocksim-backend/internal/pkg/seccode"

	"github.com/shopspring/decimal"
)

const (
	DefaultSpotBaseURL    = "https://82.push2.eastmoney.com"
	DefaultHistoryBaseURL = "https://push2his.eastmoney.com"

	defaultPageSize = 100
	maxPages        = 100

	// A-share boards: Shenzhen main, ChiNext, Shanghai main, STAR.
	marketFilter = "m:0 t:6,m:0 t:80,m:1 t:2,m:1 t:23"
)

var (
	ErrUnknownVenue = errors.New("feed: cannot determine venue")
	ErrBadPeriod    = errors.New("feed: unsupported period")
)

// Bars are stamped in exchange time.
var exchangeTZ = time.FixedZone("CST", 8*3600)

type EastmoneyConfig struct {
	SpotBaseURL    string
	HistoryBaseURL string
	Timeout        time.Duration
	PageSize       int
}

// EastmoneyClient reads the public Eastmoney quote endpoints.
type EastmoneyClient struct {
	cli      *http.Client
	spotURL  string
	histURL  string
	pageSize int
}

var _ pricesync.Feed = (*EastmoneyClient)(nil)

func NewEastmoneyClient(cfg EastmoneyConfig) *EastmoneyClient {
	if cfg.SpotBaseURL == "" {
		cfg.SpotBaseURL = DefaultSpotBaseURL
	}
	if cfg.HistoryBaseURL == "" {
		cfg.HistoryBaseURL = DefaultHistoryBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = pricesync.DefaultFeedTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &EastmoneyClient{
		cli:      &http.Client{Timeout: cfg.Timeout},
		spotURL:  strings.TrimRight(cfg.SpotBaseURL, "/"),
		histURL:  strings.TrimRight(cfg.HistoryBaseURL, "/"),
		pageSize: cfg.PageSize,
	}
}

// loose decodes numeric fields that the feed sends as numbers, quoted numbers or "-".
type loose struct {
	v  float64
	ok bool
}

func (l *loose) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "-" || string(b) == "null" {
		*l = loose{}
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*l = loose{}
		return nil
	}
	*l = loose{v: v, ok: true}
	return nil
}

type spotPage struct {
	Data *struct {
		Total int `json:"total"`
		Diff  []struct {
			Price  loose  `json:"f2"`
			Change loose  `json:"f3"`
			Code   string `json:"f12"`
			Name   string `json:"f14"`
		} `json:"diff"`
	} `json:"data"`
}

// Snapshot pages through the full-market list until the reported total is reached or a short
// page arrives. Suspended securities report "-" for price and are left out.
func (c *EastmoneyClient) Snapshot(ctx context.Context) (map[string]pricesync.SnapshotQuote, error) {
	out := make(map[string]pricesync.SnapshotQuote)
	seen := 0
	for pn := 1; pn <= maxPages; pn++ {
		q := url.Values{}
		q.Set("pn", strconv.Itoa(pn))
		q.Set("pz", strconv.Itoa(c.pageSize))
		q.Set("po", "1")
		q.Set("np", "1")
		q.Set("fltt", "2")
		q.Set("invt", "2")
		q.Set("fid", "f12")
		q.Set("fs", marketFilter)
		q.Set("fields", "f2,f3,f12,f14")

		var page spotPage
		if err := c.getJSON(ctx, c.spotURL+"/api/qt/clist/get?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("snapshot page %d: %w", pn, err)
		}
		if page.Data == nil || len(page.Data.Diff) == 0 {
			break
		}
		for _, row := range page.Data.Diff {
			seen++
			if row.Code == "" || !row.Price.ok || row.Price.v <= 0 {
				continue
			}
			out[row.Code] = pricesync.SnapshotQuote{
				Code:          row.Code,
				Name:          row.Name,
				LastPrice:     decimal.NewFromFloat(row.Price.v),
				ChangePercent: row.Change.v,
			}
		}
		if page.Data.Total > 0 && seen >= page.Data.Total {
			break
		}
		if len(page.Data.Diff) < c.pageSize {
			break
		}
	}
	return out, nil
}

type klinePage struct {
	Data *struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

func klineType(p pricesync.Period) (string, error) {
	switch p {
	case pricesync.PeriodDaily, "":
		return "101", nil
	case pricesync.PeriodWeekly:
		return "102", nil
	case pricesync.PeriodMonthly:
		return "103", nil
	case pricesync.PeriodHourly:
		return "60", nil
	}
	return "", ErrBadPeriod
}

func marketID(code string) (string, string, error) {
	venue, symbol := seccode.Split(code)
	if venue == "" {
		venue = seccode.InferVenue(symbol)
	}
	switch venue {
	case seccode.Shanghai:
		return "1", symbol, nil
	case seccode.Shenzhen:
		return "0", symbol, nil
	}
	return "", "", ErrUnknownVenue
}

// History returns bars for one security, oldest first. An empty result is not an error.
func (c *EastmoneyClient) History(ctx context.Context, hq pricesync.HistoryQuery) ([]pricesync.Bar, error) {
	klt, err := klineType(hq.Period)
	if err != nil {
		return nil, err
	}
	mkt, symbol, err := marketID(hq.Code)
	if err != nil {
		return nil, err
	}
	end := hq.End
	if end.IsZero() {
		end = time.Now()
	}

	q := url.Values{}
	q.Set("secid", mkt+"."+symbol)
	q.Set("klt", klt)
	q.Set("fqt", "0")
	q.Set("beg", hq.Start.In(exchangeTZ).Format("20060102"))
	q.Set("end", end.In(exchangeTZ).Format("20060102"))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")

	var page klinePage
	if err := c.getJSON(ctx, c.histURL+"/api/qt/stock/kline/get?"+q.Encode(), &page); err != nil {
		return nil, fmt.Errorf("history %s: %w", hq.Code, err)
	}
	if page.Data == nil {
		return nil, nil
	}
	bars := make([]pricesync.Bar, 0, len(page.Data.Klines))
	for _, line := range page.Data.Klines {
		if b, ok := parseKline(line); ok {
			bars = append(bars, b)
		}
	}
	return bars, nil
}

// parseKline reads "date,open,close,high,low,volume,amount".
func parseKline(line string) (pricesync.Bar, bool) {
	f := strings.Split(line, ",")
	if len(f) < 6 {
		return pricesync.Bar{}, false
	}
	var date time.Time
	var err error
	if strings.Contains(f[0], " ") {
		date, err = time.ParseInLocation("2006-01-02 15:04", f[0], exchangeTZ)
	} else {
		date, err = time.ParseInLocation("2006-01-02", f[0], exchangeTZ)
	}
	if err != nil {
		return pricesync.Bar{}, false
	}
	nums := make([]float64, 6)
	for i := 1; i < len(f) && i <= 6; i++ {
		v, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return pricesync.Bar{}, false
		}
		nums[i-1] = v
	}
	return pricesync.Bar{
		Date:   date,
		Open:   nums[0],
		Close:  nums[1],
		High:   nums[2],
		Low:    nums[3],
		Volume: nums[4],
		Amount: nums[5],
	}, true
}

func (c *EastmoneyClient) getJSON(ctx context.Context, u string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "stocksim-backend/1.0")
	req.Header.Set("Referer", "https://quote.eastmoney.com/")

	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("eastmoney http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// Ping checks that the snapshot endpoint answers.
func (c *EastmoneyClient) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("pn", "1")
	q.Set("pz", "1")
	q.Set("fs", marketFilter)
	q.Set("fields", "f12")
	var page spotPage
	return c.getJSON(ctx, c.spotURL+"/api/qt/clist/get?"+q.Encode(), &page)
}
