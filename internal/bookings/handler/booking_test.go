package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	apperrors "resort/pkg/errors"
	"resort/pkg/logger"
	"resort/pkg/model"
)

// Mock service for testing
type mockBookingService struct {
	reserveFunc func(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	getByIDFunc func(ctx context.Context, id string) (*model.Booking, error)
	releaseFunc func(ctx context.Context, id string) (int64, error)
}

func (m *mockBookingService) Reserve(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	if m.reserveFunc != nil {
		return m.reserveFunc(ctx, req)
	}
	return &model.Booking{ID: "bk-1"}, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) GetByGuestEmail(ctx context.Context, email string) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingService) Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockBookingService) ReleaseOccupancies(ctx context.Context, id string) (int64, error) {
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, id)
	}
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:   logger.ERROR,
		Output:  io.Discard,
		Service: "bookings-test",
	})
}

func newRouter(svc *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, testLogger()).RegisterRoutes(router)
	return router
}

func TestReserve_InvalidBody(t *testing.T) {
	router := newRouter(&mockBookingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestReserve_Created(t *testing.T) {
	var received *model.BookingRequest
	svc := &mockBookingService{
		reserveFunc: func(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
			received = req
			return &model.Booking{ID: "bk-42", GuestName: req.GuestName}, nil
		},
	}
	router := newRouter(svc)

	body := `{"guest_name":"Alice Novak","accommodation_id":"cabin-1","check_in":"2026-03-01","check_out":"2026-03-03"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("X-User-ID", "user-7")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if received == nil {
		t.Fatal("service did not receive the request")
	}
	if received.AccommodationID != "cabin-1" {
		t.Errorf("expected accommodation_id to pass through, got %q", received.AccommodationID)
	}
	if received.UserID != "user-7" {
		t.Errorf("expected user ID from header, got %q", received.UserID)
	}
}

func TestReserve_ConflictMapsTo409(t *testing.T) {
	svc := &mockBookingService{
		reserveFunc: func(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
			return nil, apperrors.Conflict("Accommodation is already booked for the selected dates")
		},
	}
	router := newRouter(svc)

	body := `{"guest_name":"Alice Novak"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected an error message in the response body")
	}
}

func TestGetByID_NotFoundMapsTo404(t *testing.T) {
	svc := &mockBookingService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestRelease_ReturnsCount(t *testing.T) {
	svc := &mockBookingService{
		releaseFunc: func(ctx context.Context, id string) (int64, error) {
			if id != "bk-9" {
				t.Errorf("expected booking ID bk-9, got %q", id)
			}
			return 3, nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/id/bk-9/release", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Released int64 `json:"released"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Released != 3 {
		t.Errorf("expected 3 released nights, got %d", resp.Data.Released)
	}
}

func TestDelete_NoContent(t *testing.T) {
	router := newRouter(&mockBookingService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/bk-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}
