package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"ashare_store/internal/domain"
	"ashare_store/internal/feature/instrument/domain/entity"
	"ashare_store/internal/feature/instrument/transport/handler"
)

// mockRegistryUsecase is a function-field mock of RegistryUsecase.
type mockRegistryUsecase struct {
	ResolveFunc      func(ctx context.Context, symbol string) (entity.Instrument, error)
	ListFunc         func(ctx context.Context, exchange domain.Exchange, includeDelisted bool) ([]entity.Instrument, error)
	MembersOfFunc    func(ctx context.Context, boardCode string) ([]string, error)
	BoardsOfFunc     func(ctx context.Context, symbol string) ([]string, error)
	ResolveBoardFunc func(ctx context.Context, code string) (entity.Board, error)
}

func (m *mockRegistryUsecase) Resolve(ctx context.Context, symbol string) (entity.Instrument, error) {
	return m.ResolveFunc(ctx, symbol)
}

func (m *mockRegistryUsecase) List(ctx context.Context, exchange domain.Exchange, includeDelisted bool) ([]entity.Instrument, error) {
	return m.ListFunc(ctx, exchange, includeDelisted)
}

func (m *mockRegistryUsecase) MembersOf(ctx context.Context, boardCode string) ([]string, error) {
	return m.MembersOfFunc(ctx, boardCode)
}

func (m *mockRegistryUsecase) BoardsOf(ctx context.Context, symbol string) ([]string, error) {
	return m.BoardsOfFunc(ctx, symbol)
}

func (m *mockRegistryUsecase) ResolveBoard(ctx context.Context, code string) (entity.Board, error) {
	return m.ResolveBoardFunc(ctx, code)
}

func newRouter(uc handler.RegistryUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewInstrumentHandler(uc)
	r := gin.New()
	r.GET("/instruments", h.List)
	r.GET("/instruments/:symbol", h.Get)
	r.GET("/instruments/:symbol/boards", h.Boards)
	r.GET("/boards/:code/members", h.Members)
	return r
}

func serve(r *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestInstrumentHandler_Get(t *testing.T) {
	delist := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		url            string
		resolve        func(ctx context.Context, symbol string) (entity.Instrument, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success: lower-case symbol is normalised",
			url:  "/instruments/600000.sh",
			resolve: func(ctx context.Context, symbol string) (entity.Instrument, error) {
				assert.Equal(t, "600000.SH", symbol)
				return entity.Instrument{
					Symbol: symbol, Name: "浦发银行", Exchange: domain.ExchangeShanghai,
					ListDate: time.Date(1999, 11, 10, 0, 0, 0, 0, time.UTC), Industry: "银行",
				}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"symbol":"600000.SH","name":"浦发银行","exchange":"SH","list_date":"1999-11-10","industry":"银行"}`,
		},
		{
			name: "success: delisted instrument",
			url:  "/instruments/000001.SZ",
			resolve: func(ctx context.Context, symbol string) (entity.Instrument, error) {
				return entity.Instrument{
					Symbol: symbol, Name: "x", Exchange: domain.ExchangeShenzhen,
					ListDate: time.Date(1991, 4, 3, 0, 0, 0, 0, time.UTC), DelistDate: &delist,
				}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"symbol":"000001.SZ","name":"x","exchange":"SZ","list_date":"1991-04-03","industry":"","delist_date":"2030-01-02"}`,
		},
		{
			name: "error: unknown symbol",
			url:  "/instruments/999999.SH",
			resolve: func(ctx context.Context, symbol string) (entity.Instrument, error) {
				return entity.Instrument{}, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"unknown symbol: 999999.SH"}`,
		},
		{
			name: "error: storage failure is hidden",
			url:  "/instruments/600000.SH",
			resolve: func(ctx context.Context, symbol string) (entity.Instrument, error) {
				return entity.Instrument{}, errors.New("database error")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&mockRegistryUsecase{ResolveFunc: tt.resolve})
			w := serve(r, tt.url)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestInstrumentHandler_List(t *testing.T) {
	var gotInclude bool
	uc := &mockRegistryUsecase{
		ListFunc: func(ctx context.Context, exchange domain.Exchange, includeDelisted bool) ([]entity.Instrument, error) {
			assert.Equal(t, domain.ExchangeShanghai, exchange)
			gotInclude = includeDelisted
			return []entity.Instrument{{Symbol: "600000.SH", Name: "浦发银行", Exchange: exchange}}, nil
		},
	}
	r := newRouter(uc)

	w := serve(r, "/instruments?exchange=sh")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"symbol":"600000.SH","name":"浦发银行","exchange":"SH","list_date":"0001-01-01","industry":""}]`, w.Body.String())
	assert.False(t, gotInclude, "listed only by default")

	w = serve(r, "/instruments?exchange=SH&include_delisted=true")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotInclude)

	w = serve(r, "/instruments?exchange=SH&include_delisted=maybe")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, "/instruments?exchange=HK")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInstrumentHandler_Boards(t *testing.T) {
	uc := &mockRegistryUsecase{
		ResolveFunc: func(ctx context.Context, symbol string) (entity.Instrument, error) {
			if symbol != "600000.SH" {
				return entity.Instrument{}, domain.ErrUnknownSymbol
			}
			return entity.Instrument{Symbol: symbol}, nil
		},
		BoardsOfFunc: func(ctx context.Context, symbol string) ([]string, error) {
			return []string{"000300.SH", "BK0475"}, nil
		},
	}
	r := newRouter(uc)

	w := serve(r, "/instruments/600000.SH/boards")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"symbol":"600000.SH","boards":["000300.SH","BK0475"]}`, w.Body.String())

	w = serve(r, "/instruments/000002.SZ/boards")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInstrumentHandler_Members(t *testing.T) {
	uc := &mockRegistryUsecase{
		ResolveBoardFunc: func(ctx context.Context, code string) (entity.Board, error) {
			if code != "BK0475" {
				return entity.Board{}, domain.ErrUnknownBoard
			}
			return entity.Board{Code: code}, nil
		},
		MembersOfFunc: func(ctx context.Context, boardCode string) ([]string, error) {
			return nil, nil
		},
	}
	r := newRouter(uc)

	w := serve(r, "/boards/BK0475/members")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"board":"BK0475","symbols":[]}`, w.Body.String())

	w = serve(r, "/boards/BK9999/members")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
