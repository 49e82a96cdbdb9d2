package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookit/models"
	"bookit/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHandlerFixture(t *testing.T) (*Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	return NewHandler(f.svc, NewReceipts("secret"), zap.NewNop()), f
}

func asSubject(r *http.Request, s models.Subject) *http.Request {
	return r.WithContext(utils.WithSubject(r.Context(), s))
}

func TestCreateHandler(t *testing.T) {
	h, _ := newHandlerFixture(t)

	body, _ := json.Marshal(request("svc-1"))
	req := asSubject(httptest.NewRequest(http.MethodPost, "/api/bookings/", bytes.NewReader(body)), owner)
	rec := httptest.NewRecorder()
	h.Create(rec, req, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Haircut", got.ServiceTitle)
	assert.Equal(t, models.BookingPending, got.Status)
}

func TestCreateHandlerUnknownService(t *testing.T) {
	h, _ := newHandlerFixture(t)

	body, _ := json.Marshal(request("ghost"))
	req := asSubject(httptest.NewRequest(http.MethodPost, "/api/bookings/", bytes.NewReader(body)), owner)
	rec := httptest.NewRecorder()
	h.Create(rec, req, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Service not found"}`, rec.Body.String())
}

func TestCreateHandlerBadJSON(t *testing.T) {
	h, _ := newHandlerFixture(t)

	req := asSubject(httptest.NewRequest(http.MethodPost, "/api/bookings/", bytes.NewBufferString("{")), owner)
	rec := httptest.NewRecorder()
	h.Create(rec, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateHandlerStatuses(t *testing.T) {
	h, f := newHandlerFixture(t)
	b, err := f.svc.Create(context.Background(), owner, request("svc-1"))
	require.NoError(t, err)
	ps := httprouter.Params{{Key: "id", Value: b.ID}}

	patch := func(s models.Subject, body string) *httptest.ResponseRecorder {
		req := asSubject(httptest.NewRequest(http.MethodPatch, "/api/bookings/"+b.ID+"/", bytes.NewBufferString(body)), s)
		rec := httptest.NewRecorder()
		h.Update(rec, req, ps)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, patch(stranger, `{"address":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, patch(owner, `{"total_price": 1}`).Code)

	rec := patch(owner, `{"status":"cancelled"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.BookingCancelled, got.Status)
}

func TestListHandlerDegrades(t *testing.T) {
	h, f := newHandlerFixture(t)
	f.bookings.FailWith(errors.New("timeout"))

	req := asSubject(httptest.NewRequest(http.MethodGet, "/api/bookings/", nil), owner)
	rec := httptest.NewRecorder()
	h.List(rec, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bookings": [], "error": "Failed to load bookings: DependencyError"}`, rec.Body.String())
}

func TestListHandlerReturnsOwnBookings(t *testing.T) {
	h, f := newHandlerFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, owner, request("svc-1"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, stranger, request("svc-1"))
	require.NoError(t, err)

	req := asSubject(httptest.NewRequest(http.MethodGet, "/api/bookings/", nil), owner)
	rec := httptest.NewRecorder()
	h.List(rec, req, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, owner.ID, got[0].UserID)
}

func TestReceiptHandler(t *testing.T) {
	h, f := newHandlerFixture(t)
	b, err := f.svc.Create(context.Background(), owner, request("svc-1"))
	require.NoError(t, err)
	ps := httprouter.Params{{Key: "id", Value: b.ID}}

	rec := httptest.NewRecorder()
	h.Receipt(rec, asSubject(httptest.NewRequest(http.MethodGet, "/", nil), owner), ps)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = httptest.NewRecorder()
	h.Receipt(rec, asSubject(httptest.NewRequest(http.MethodGet, "/", nil), stranger), ps)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReceiptPayloadVerifies(t *testing.T) {
	rc := NewReceipts("secret")
	b := models.Booking{ID: "b1", UserID: "u1"}

	payload := rc.QRPayload(b)
	assert.True(t, rc.VerifyPayload(payload))
	assert.False(t, NewReceipts("other").VerifyPayload(payload))
	assert.False(t, rc.VerifyPayload("b1|u2|"+payload[len("b1|u1|"):]))
	assert.False(t, rc.VerifyPayload("garbage"))
}

func TestStatsHandler(t *testing.T) {
	h, f := newHandlerFixture(t)
	_, err := f.svc.Create(context.Background(), owner, request("svc-1"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Stats(rec, asSubject(httptest.NewRequest(http.MethodGet, "/api/me/stats/", nil), owner), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":1,"completed":0,"pending":1}`, rec.Body.String())
}
