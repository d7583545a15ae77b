package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stocksim-backend/internal/application/pricesync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_PagesAndSkipsSuspended(t *testing.T) {
	pages := map[string]string{
		"1": `{"data":{"total":3,"diff":[
			{"f2":10.5,"f3":1.25,"f12":"600000","f14":"浦发银行"},
			{"f2":"-","f3":"-","f12":"600001","f14":"停牌股"}]}}`,
		"2": `{"data":{"total":3,"diff":[{"f2":"12.01","f3":-0.4,"f12":"000001","f14":"平安银行"}]}}`,
	}
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/api/qt/clist/get", r.URL.Path)
		assert.Equal(t, "f2,f3,f12,f14", r.URL.Query().Get("fields"))
		assert.Equal(t, "2", r.URL.Query().Get("pz"))
		fmt.Fprint(w, pages[r.URL.Query().Get("pn")])
	}))
	defer srv.Close()

	c := NewEastmoneyClient(EastmoneyConfig{SpotBaseURL: srv.URL, PageSize: 2})
	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
	require.Len(t, snap, 2)
	assert.True(t, snap["600000"].LastPrice.Equal(decimal.RequireFromString("10.5")))
	assert.InDelta(t, 1.25, snap["600000"].ChangePercent, 1e-9)
	assert.Equal(t, "浦发银行", snap["600000"].Name)
	assert.True(t, snap["000001"].LastPrice.Equal(decimal.RequireFromString("12.01")))
	assert.NotContains(t, snap, "600001")
}

func TestSnapshot_MissingTotalStopsOnShortPage(t *testing.T) {
	pages := map[string]string{
		"1": `{"data":{"diff":[
			{"f2":10.5,"f3":1.25,"f12":"600000","f14":"浦发银行"},
			{"f2":32.1,"f3":0.3,"f12":"600036","f14":"招商银行"}]}}`,
		"2": `{"data":{"total":0,"diff":[{"f2":"12.01","f3":-0.4,"f12":"000001","f14":"平安银行"}]}}`,
	}
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, pages[r.URL.Query().Get("pn")])
	}))
	defer srv.Close()

	snap, err := NewEastmoneyClient(EastmoneyConfig{SpotBaseURL: srv.URL, PageSize: 2}).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
	assert.Len(t, snap, 3)
	assert.Contains(t, snap, "000001")
}

func TestSnapshot_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rc":0,"data":null}`)
	}))
	defer srv.Close()

	snap, err := NewEastmoneyClient(EastmoneyConfig{SpotBaseURL: srv.URL}).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSnapshot_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewEastmoneyClient(EastmoneyConfig{SpotBaseURL: srv.URL}).Snapshot(context.Background())
	assert.Error(t, err)
}

func TestHistory_ParsesKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/qt/stock/kline/get", r.URL.Path)
		assert.Equal(t, "0.000001", q.Get("secid"))
		assert.Equal(t, "101", q.Get("klt"))
		assert.Equal(t, "20240501", q.Get("beg"))
		assert.Equal(t, "20240511", q.Get("end"))
		fmt.Fprint(w, `{"data":{"code":"000001","klines":[
			"2024-05-09,9.90,98.0,99.1,9.80,1000,98000.0",
			"garbage",
			"2024-05-10,98.0,100.0,101.0,97.5,1200,120000.0"]}}`)
	}))
	defer srv.Close()

	c := NewEastmoneyClient(EastmoneyConfig{HistoryBaseURL: srv.URL})
	bars, err := c.History(context.Background(), pricesync.HistoryQuery{
		Code:   "sz.000001",
		Period: pricesync.PeriodDaily,
		Start:  time.Date(2024, 5, 1, 12, 0, 0, 0, exchangeTZ),
		End:    time.Date(2024, 5, 11, 12, 0, 0, 0, exchangeTZ),
	})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 98.0, bars[0].Close)
	assert.Equal(t, 100.0, bars[1].Close)
	assert.Equal(t, 101.0, bars[1].High)
	assert.Equal(t, 97.5, bars[1].Low)
	assert.Equal(t, 1200.0, bars[1].Volume)
	assert.Equal(t, 10, bars[1].Date.Day())
}

func TestHistory_HourlyAndVenueInference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1.600000", r.URL.Query().Get("secid"))
		assert.Equal(t, "60", r.URL.Query().Get("klt"))
		fmt.Fprint(w, `{"data":{"klines":["2024-05-10 10:30,10.0,10.2,10.3,9.9,500,5100"]}}`)
	}))
	defer srv.Close()

	c := NewEastmoneyClient(EastmoneyConfig{HistoryBaseURL: srv.URL})
	bars, err := c.History(context.Background(), pricesync.HistoryQuery{Code: "600000", Period: pricesync.PeriodHourly})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 10, bars[0].Date.Hour())
	assert.Equal(t, 30, bars[0].Date.Minute())
}

func TestHistory_Errors(t *testing.T) {
	c := NewEastmoneyClient(EastmoneyConfig{HistoryBaseURL: "http://127.0.0.1:1"})
	_, err := c.History(context.Background(), pricesync.HistoryQuery{Code: "bj.830799"})
	assert.ErrorIs(t, err, ErrUnknownVenue)

	_, err = c.History(context.Background(), pricesync.HistoryQuery{Code: "sh.600000", Period: "yearly"})
	assert.ErrorIs(t, err, ErrBadPeriod)
}

func TestHistory_NullData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":null}`)
	}))
	defer srv.Close()

	bars, err := NewEastmoneyClient(EastmoneyConfig{HistoryBaseURL: srv.URL}).
		History(context.Background(), pricesync.HistoryQuery{Code: "sh.600000"})
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestHistory_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := NewEastmoneyClient(EastmoneyConfig{HistoryBaseURL: srv.URL}).
		History(ctx, pricesync.HistoryQuery{Code: "sh.600000"})
	assert.Error(t, err)
}

func TestLooseFloat(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{`1.5`, 1.5, true},
		{`"2.25"`, 2.25, true},
		{`"-"`, 0, false},
		{`null`, 0, false},
	}
	for _, tc := range cases {
		var l loose
		require.NoError(t, l.UnmarshalJSON([]byte(tc.raw)))
		assert.Equal(t, tc.want, l.v, tc.raw)
		assert.Equal(t, tc.ok, l.ok, tc.raw)
	}
}
