// Package handler provides the HTTP handlers of the query API.
package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	adjentity "ashare_store/internal/feature/adjustment/domain/entity"
	barentity "ashare_store/internal/feature/bars/domain/entity"
	"ashare_store/internal/feature/series/transport/http/dto"
	httpx "ashare_store/internal/platform/http/handler"
)

const parquetContentType = "application/vnd.apache.parquet"

// SeriesUsecase is the query facade used by the handler.
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type SeriesUsecase interface {
	GetAdjustedSeries(ctx context.Context, symbol string, start, end time.Time, granularity barentity.Granularity, adjType adjentity.AdjType, windows ...barentity.SessionWindow) ([]barentity.Bar, error)
	GetBoardConstituents(ctx context.Context, boardCode string, asOf time.Time) ([]string, error)
}

// CrossSectionExporter encodes one trading day of bars for download.
type CrossSectionExporter interface {
	ExportCrossSection(ctx context.Context, date time.Time, granularity barentity.Granularity, w io.Writer) (int, error)
}

// SeriesHandler serves adjusted series, board constituents and cross-section exports.
type SeriesHandler struct {
	uc       SeriesUsecase
	exporter CrossSectionExporter
}

// NewSeriesHandler creates a SeriesHandler.
func NewSeriesHandler(uc SeriesUsecase, exporter CrossSectionExporter) *SeriesHandler {
	return &SeriesHandler{uc: uc, exporter: exporter}
}

// GetSeries returns an adjusted bar series.
//
// GET /series/:symbol?start=2024-01-02&end=2024-01-31&granularity=day&adj=forward&session=continuous
func (h *SeriesHandler) GetSeries(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	start, err := parseDate(c.Query("start"))
	if err != nil {
		httpx.BadRequest(c, "invalid start: "+err.Error())
		return
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		httpx.BadRequest(c, "invalid end: "+err.Error())
		return
	}
	granularity, err := barentity.ParseGranularity(c.Query("granularity"))
	if err != nil {
		httpx.BadRequest(c, err.Error())
		return
	}
	adjType, err := adjentity.ParseAdjType(c.Query("adj"))
	if err != nil {
		httpx.WriteError(c, err)
		return
	}
	var windows []barentity.SessionWindow
	switch c.Query("session") {
	case "", "all":
	case "continuous":
		windows = barentity.ContinuousSession
	default:
		httpx.BadRequest(c, fmt.Sprintf("unknown session %q", c.Query("session")))
		return
	}

	bars, err := h.uc.GetAdjustedSeries(c.Request.Context(), symbol, start, end, granularity, adjType, windows...)
	if err != nil {
		httpx.WriteError(c, err)
		return
	}

	layout := time.DateOnly
	if granularity == barentity.Minute {
		layout = time.DateTime
	}
	out := make([]dto.BarItem, 0, len(bars))
	for _, b := range bars {
		out = append(out, dto.BarItem{
			Time:   b.Timestamp().Format(layout),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Amount: b.Amount,
		})
	}
	c.JSON(http.StatusOK, dto.SeriesResponse{
		Symbol:      symbol,
		Granularity: string(granularity),
		Adj:         string(adjType),
		Bars:        out,
	})
}

// GetConstituents returns the members of a board, optionally at a past instant.
//
// GET /boards/:code/constituents?as_of=2024-02-15
func (h *SeriesHandler) GetConstituents(c *gin.Context) {
	code := c.Param("code")
	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		var err error
		asOf, err = parseInstant(raw)
		if err != nil {
			httpx.BadRequest(c, "invalid as_of: "+err.Error())
			return
		}
	}

	symbols, err := h.uc.GetBoardConstituents(c.Request.Context(), code, asOf)
	if err != nil {
		httpx.WriteError(c, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	resp := dto.ConstituentsResponse{Board: code, Symbols: symbols}
	if !asOf.IsZero() {
		resp.AsOf = asOf.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// ExportCrossSection streams all bars of one trading day as a Parquet file.
//
// GET /cross-section/:date?granularity=day
func (h *SeriesHandler) ExportCrossSection(c *gin.Context) {
	date, err := parseDate(c.Param("date"))
	if err != nil {
		httpx.BadRequest(c, "invalid date: "+err.Error())
		return
	}
	granularity, err := barentity.ParseGranularity(c.Query("granularity"))
	if err != nil {
		httpx.BadRequest(c, err.Error())
		return
	}

	// buffered so that an encoding failure can still be reported as JSON
	var buf bytes.Buffer
	n, err := h.exporter.ExportCrossSection(c.Request.Context(), date, granularity, &buf)
	if err != nil {
		httpx.WriteError(c, err)
		return
	}
	filename := fmt.Sprintf("%s_%s.parquet", granularity, date.Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("X-Row-Count", fmt.Sprint(n))
	c.Data(http.StatusOK, parquetContentType, buf.Bytes())
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	return time.Parse(time.DateOnly, s)
}

// parseInstant accepts a date (start of that day) or an RFC 3339 timestamp.
func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
