package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/middleware"
	"github.com/rewear-app/rewear-api/internal/models"
	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
)

type fakeSwapSrv struct {
	created    *models.Swap
	createErr  error
	transition *models.Swap
	transErr   error
	lastAction models.SwapAction
	lastActor  string
}

func (f *fakeSwapSrv) Create(_ context.Context, requesterID string, req models.CreateSwapRequest) (*models.Swap, error) {
	f.lastActor = requesterID
	return f.created, f.createErr
}

func (f *fakeSwapSrv) Transition(_ context.Context, actorID string, swapID string, action models.SwapAction) (*models.Swap, error) {
	f.lastActor = actorID
	f.lastAction = action
	return f.transition, f.transErr
}

func (f *fakeSwapSrv) Get(_ context.Context, userID, id string) (*models.Swap, error) {
	return f.transition, f.transErr
}

func (f *fakeSwapSrv) List(_ context.Context, userID, direction string, page, pageSize int) ([]models.Swap, *models.Pagination, error) {
	return nil, &models.Pagination{Page: page, PageSize: pageSize}, nil
}

func authedContext(t *testing.T, rec *httptest.ResponseRecorder, method, target, body string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(rec)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})
	return c
}

func TestSwapHandlerCreate(t *testing.T) {
	srv := &fakeSwapSrv{created: &models.Swap{ID: "swap-1", Status: models.SwapStatusPending}}
	h := NewSwapHandler(srv)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, http.MethodPost, "/swaps", `{"requested_item_id":"item-1","points_offered":30}`)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user-1", srv.lastActor)

	var envelope struct {
		Data models.Swap `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "swap-1", envelope.Data.ID)
}

func TestSwapHandlerCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSwapHandler(&fakeSwapSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/swaps", strings.NewReader(`{}`))

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSwapHandlerCreateBadJSON(t *testing.T) {
	h := NewSwapHandler(&fakeSwapSrv{})

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, http.MethodPost, "/swaps", `{"requested_item_id":`)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSwapHandlerTransitionActions(t *testing.T) {
	srv := &fakeSwapSrv{transition: &models.Swap{ID: "swap-1", Status: models.SwapStatusAccepted}}
	h := NewSwapHandler(srv)

	cases := []struct {
		invoke func(*gin.Context)
		action models.SwapAction
	}{
		{h.Accept, models.SwapActionAccept},
		{h.Reject, models.SwapActionReject},
		{h.Cancel, models.SwapActionCancel},
		{h.Complete, models.SwapActionComplete},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := authedContext(t, rec, http.MethodPost, "/swaps/swap-1/act", "")
		c.Params = gin.Params{{Key: "id", Value: "swap-1"}}

		tc.invoke(c)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, tc.action, srv.lastAction)
	}
}

func TestSwapHandlerTransitionErrorStatus(t *testing.T) {
	srv := &fakeSwapSrv{transErr: appErrors.ErrInsufficientPoints}
	h := NewSwapHandler(srv)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, http.MethodPost, "/swaps/swap-1/complete", "")
	c.Params = gin.Params{{Key: "id", Value: "swap-1"}}

	h.Complete(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "INSUFFICIENT_POINTS", envelope.Error.Code)
}
