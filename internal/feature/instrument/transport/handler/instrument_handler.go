// Package handler provides the HTTP handlers of the instrument feature.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ashare_store/internal/domain"
	"ashare_store/internal/feature/instrument/domain/entity"
	"ashare_store/internal/feature/instrument/transport/http/dto"
	httpx "ashare_store/internal/platform/http/handler"
)

// RegistryUsecase is the read side of the instrument registry used by the handler.
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type RegistryUsecase interface {
	Resolve(ctx context.Context, symbol string) (entity.Instrument, error)
	List(ctx context.Context, exchange domain.Exchange, includeDelisted bool) ([]entity.Instrument, error)
	MembersOf(ctx context.Context, boardCode string) ([]string, error)
	BoardsOf(ctx context.Context, symbol string) ([]string, error)
	ResolveBoard(ctx context.Context, code string) (entity.Board, error)
}

// InstrumentHandler serves instrument and board lookups.
type InstrumentHandler struct {
	uc RegistryUsecase
}

// NewInstrumentHandler creates an InstrumentHandler.
func NewInstrumentHandler(uc RegistryUsecase) *InstrumentHandler {
	return &InstrumentHandler{uc: uc}
}

// List returns the listed instruments of one exchange.
//
// GET /instruments?exchange=SH&include_delisted=true
func (h *InstrumentHandler) List(c *gin.Context) {
	exchange, err := domain.ParseExchange(strings.ToUpper(c.Query("exchange")))
	if err != nil {
		httpx.WriteError(c, err)
		return
	}
	includeDelisted := false
	if raw := c.Query("include_delisted"); raw != "" {
		if includeDelisted, err = strconv.ParseBool(raw); err != nil {
			httpx.BadRequest(c, "invalid include_delisted: "+raw)
			return
		}
	}
	insts, err := h.uc.List(c.Request.Context(), exchange, includeDelisted)
	if err != nil {
		httpx.WriteError(c, err)
		return
	}
	out := make([]dto.InstrumentItem, 0, len(insts))
	for _, inst := range insts {
		out = append(out, toItem(inst))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns one instrument.
//
// GET /instruments/:symbol
func (h *InstrumentHandler) Get(c *gin.Context) {
	inst, err := h.uc.Resolve(c.Request.Context(), strings.ToUpper(c.Param("symbol")))
	if err != nil {
		httpx.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItem(inst))
}

// Boards returns the boards an instrument currently belongs to.
//
// GET /instruments/:symbol/boards
func (h *InstrumentHandler) Boards(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	ctx := c.Request.Context()
	if _, err := h.uc.Resolve(ctx, symbol); err != nil {
		httpx.WriteError(c, err)
		return
	}
	codes, err := h.uc.BoardsOf(ctx, symbol)
	if err != nil {
		httpx.WriteError(c, err)
		return
	}
	if codes == nil {
		codes = []string{}
	}
	c.JSON(http.StatusOK, dto.InstrumentBoards{Symbol: symbol, Boards: codes})
}

// Members returns the current constituents of a board.
//
// GET /boards/:code/members
func (h *InstrumentHandler) Members(c *gin.Context) {
	code := c.Param("code")
	ctx := c.Request.Context()
	if _, err := h.uc.ResolveBoard(ctx, code); err != nil {
		httpx.WriteError(c, err)
		return
	}
	symbols, err := h.uc.MembersOf(ctx, code)
	if err != nil {
		httpx.WriteError(c, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	c.JSON(http.StatusOK, dto.BoardMembers{Board: code, Symbols: symbols})
}

func toItem(inst entity.Instrument) dto.InstrumentItem {
	item := dto.InstrumentItem{
		Symbol:   inst.Symbol,
		Name:     inst.Name,
		Exchange: string(inst.Exchange),
		ListDate: inst.ListDate.Format(time.DateOnly),
		Industry: inst.Industry,
	}
	if inst.DelistDate != nil {
		d := inst.DelistDate.Format(time.DateOnly)
		item.DelistDate = &d
	}
	return item
}
