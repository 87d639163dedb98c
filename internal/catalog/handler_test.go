package catalog_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/2beens/liftandlevel/internal/catalog"
)

func TestHandler_Search(t *testing.T) {
	service := NewMockcatalogService(gomock.NewController(t))
	r := mux.NewRouter()
	catalog.NewHandler(service).SetupRoutes(r)

	service.EXPECT().Search(gomock.Any(), "bench").Return([]catalog.Exercise{{ID: 1, Name: "Bench Press", Category: "chest"}}, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/exercises?q=bench", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id":1,"name":"Bench Press","category":"chest"}]`, rr.Body.String())

	service.EXPECT().Search(gomock.Any(), "").Return(nil, nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/exercises", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	service.EXPECT().Search(gomock.Any(), "x").Return(nil, errors.New("boom"))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/exercises?q=x", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
