// Package covid proxies a third-party epidemiology API. The handlers here
// are protected resources; authorization is enforced upstream by the guard
// middleware and never inspected here.
package covid

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

type Record map[string]interface{}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the upstream API, e.g.
// https://disease.sh/v3/covid-19/.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// fetchJSON is the single upstream capability: GET a URL and decode the JSON
// body into v.
func (c *Client) fetchJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	slog.Debug("Fetching upstream data", "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch '%s': %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch '%s': unexpected status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode '%s': %w", url, err)
	}
	return nil
}

type upstreamCountry struct {
	Country     string `json:"country"`
	CountryInfo struct {
		ISO3 string `json:"iso3"`
	} `json:"countryInfo"`
}

// Countries returns the available countries with their ISO3 short names.
func (c *Client) Countries(ctx context.Context) ([]Record, error) {
	var countries []upstreamCountry
	if err := c.fetchJSON(ctx, c.baseURL+"countries", &countries); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(countries))
	for _, country := range countries {
		records = append(records, Record{
			"country":   country.Country,
			"shortname": country.CountryInfo.ISO3,
		})
	}
	return records, nil
}

type upstreamSnapshot struct {
	Active    float64 `json:"active"`
	Critical  float64 `json:"critical"`
	Recovered float64 `json:"recovered"`
	Cases     float64 `json:"cases"`
	Deaths    float64 `json:"deaths"`
	Tests     float64 `json:"tests"`
}

// CountryInfo returns the current case numbers of a country. The special
// country name "all" selects the worldwide snapshot.
func (c *Client) CountryInfo(ctx context.Context, country string) ([]Record, error) {
	url := c.baseURL + "countries/" + country
	if country == "all" {
		url = c.baseURL + "all"
	}

	var snapshot upstreamSnapshot
	if err := c.fetchJSON(ctx, url, &snapshot); err != nil {
		return nil, err
	}

	return []Record{{
		"active":    snapshot.Active,
		"critical":  snapshot.Critical,
		"recovered": snapshot.Recovered,
		"cases":     snapshot.Cases,
		"deaths":    snapshot.Deaths,
		"tests":     snapshot.Tests,
	}}, nil
}

type upstreamHistory struct {
	Timeline *upstreamTimeline  `json:"timeline"`
	Cases    map[string]float64 `json:"cases"`
	Deaths   map[string]float64 `json:"deaths"`
}

type upstreamTimeline struct {
	Cases  map[string]float64 `json:"cases"`
	Deaths map[string]float64 `json:"deaths"`
}

// History returns per-day new cases and deaths for the last lastDays days,
// computed as deltas of the cumulative upstream series. Dates are Unix
// timestamps.
func (c *Client) History(ctx context.Context, country string, lastDays int) ([]Record, error) {
	url := fmt.Sprintf("%shistorical/%s?lastdays=%d", c.baseURL, country, lastDays)

	var history upstreamHistory
	if err := c.fetchJSON(ctx, url, &history); err != nil {
		return nil, err
	}

	cases := history.Cases
	deaths := history.Deaths
	if country != "all" {
		if history.Timeline == nil {
			return nil, fmt.Errorf("missing timeline for country '%s'", country)
		}
		cases = history.Timeline.Cases
		deaths = history.Timeline.Deaths
	}

	// cumulative series keyed by M/D/YY; deltas need chronological order
	dates := make([]time.Time, 0, len(cases))
	byDate := make(map[time.Time]string, len(cases))
	for key := range cases {
		date, err := parseHistoryDate(key)
		if err != nil {
			return nil, err
		}
		dates = append(dates, date)
		byDate[date] = key
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	records := make([]Record, 0, len(dates))
	prevCases := -1.0
	prevDeaths := -1.0
	for _, date := range dates {
		key := byDate[date]
		numCases := cases[key]
		numDeaths := deaths[key]
		if prevCases >= 0 && prevDeaths >= 0 {
			records = append(records, Record{
				"date":       date.Unix(),
				"num_cases":  numCases - prevCases,
				"num_deaths": numDeaths - prevDeaths,
			})
		}
		prevCases = numCases
		prevDeaths = numDeaths
	}

	return records, nil
}

// parseHistoryDate parses the upstream M/D/YY date key.
func parseHistoryDate(key string) (time.Time, error) {
	date, err := time.ParseInLocation("1/2/06", key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse history date '%s': %w", key, err)
	}
	return date, nil
}
