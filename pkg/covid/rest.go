package covid

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Result is the uniform response shape of all REST endpoints: the record
// keys, the records themselves and a message that is null on success.
type Result struct {
	Keys    []string `json:"keys"`
	Records []Record `json:"records"`
	Message *string  `json:"message"`
}

const (
	msgNotSpecified = "[COVID-19] Country is not specified"
	msgNotFound     = "[COVID-19] Country not found"
)

func message(s string) *string {
	return &s
}

type API struct {
	client *Client
}

func NewAPI(client *Client) *API {
	return &API{client: client}
}

// MountRoutes mounts the REST endpoints. The group is expected to carry the
// bearer-token guard; the handlers themselves only assume "caller is
// authorized".
func (a *API) MountRoutes(g *echo.Group) {
	g.GET("/countries", a.Countries)
	g.POST("/country_info", a.CountryInfo)
	g.POST("/history", a.History)
	g.GET("/test", a.Test)
}

func (a *API) Countries(c echo.Context) error {
	result := Result{
		Keys:    []string{"country", "shortname"},
		Records: []Record{},
		Message: message(msgNotFound),
	}

	records, err := a.client.Countries(c.Request().Context())
	if err != nil {
		slog.Error("Countries request failed", "error", err)
		return c.JSON(http.StatusOK, result)
	}

	result.Records = records
	result.Message = nil
	return c.JSON(http.StatusOK, result)
}

type countryInfoRequest struct {
	Country string `form:"country" json:"country"`
}

func (a *API) CountryInfo(c echo.Context) error {
	result := Result{
		Keys:    []string{"active", "critical", "recovered", "cases", "deaths", "tests"},
		Records: []Record{},
		Message: message(msgNotSpecified),
	}

	var req countryInfoRequest
	if err := c.Bind(&req); err != nil || req.Country == "" {
		return c.JSON(http.StatusOK, result)
	}

	records, err := a.client.CountryInfo(c.Request().Context(), req.Country)
	if err != nil {
		slog.Error("Country info request failed", "error", err, "country", req.Country)
		result.Message = message(msgNotFound)
		return c.JSON(http.StatusOK, result)
	}

	result.Records = records
	result.Message = nil
	return c.JSON(http.StatusOK, result)
}

type historyRequest struct {
	Country   string `form:"country" json:"country"`
	NumOfDays int    `form:"num_of_days" json:"num_of_days"`
}

func (a *API) History(c echo.Context) error {
	result := Result{
		Keys:    []string{"date", "num_cases", "num_deaths"},
		Records: []Record{},
		Message: message(msgNotSpecified),
	}

	var req historyRequest
	if err := c.Bind(&req); err != nil || req.Country == "" {
		return c.JSON(http.StatusOK, result)
	}
	if req.NumOfDays <= 0 {
		req.NumOfDays = 30
	}

	records, err := a.client.History(c.Request().Context(), req.Country, req.NumOfDays)
	if err != nil {
		slog.Error("History request failed", "error", err, "country", req.Country)
		result.Message = message(msgNotFound)
		return c.JSON(http.StatusOK, result)
	}

	result.Records = records
	result.Message = nil
	return c.JSON(http.StatusOK, result)
}

// Test serves a static fixture so the REST plumbing can be checked without
// the upstream service.
func (a *API) Test(c echo.Context) error {
	return c.JSON(http.StatusOK, Result{
		Keys: []string{"apple", "orange", "banana"},
		Records: []Record{
			{"apple": 1, "orange": 2, "banana": 3},
			{"apple": 7, "orange": 5, "banana": 4},
			{"apple": 11, "orange": 23, "banana": 31},
		},
	})
}
