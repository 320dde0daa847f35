package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/logistics-tracker/internal/auth"
	"github.com/ukydev/logistics-tracker/internal/config"
	"github.com/ukydev/logistics-tracker/internal/dataservice"
	mockstore "github.com/ukydev/logistics-tracker/internal/mock"
	"github.com/ukydev/logistics-tracker/internal/models"
	"github.com/ukydev/logistics-tracker/internal/offline"
	"github.com/ukydev/logistics-tracker/internal/session"
	"github.com/ukydev/logistics-tracker/internal/simulator"
	"github.com/ukydev/logistics-tracker/internal/storage"
)

// MockBackend stands in for the remote store. Only the methods a test sets
// expectations on are implemented.
type MockBackend struct {
	mock.Mock
	dataservice.Backend
}

func (m *MockBackend) FetchTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Trip), args.Error(1)
}

func (m *MockBackend) FetchNotifications(ctx context.Context, userID string) ([]models.NotificationItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.NotificationItem), args.Error(1)
}

func (m *MockBackend) FetchUserByPhone(ctx context.Context, phone string) (models.User, error) {
	args := m.Called(ctx, phone)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockBackend) FetchOrganizations(ctx context.Context) ([]models.Org, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Org), args.Error(1)
}

func (m *MockBackend) FetchBranches(ctx context.Context, orgID string) ([]models.Branch, error) {
	args := m.Called(ctx, orgID)
	return args.Get(0).([]models.Branch), args.Error(1)
}

// fakeFeed is a Broadcaster the test drives by hand.
type fakeFeed struct {
	mu         sync.Mutex
	vehicles   []models.Vehicle
	listeners  []simulator.Listener
	subscribed chan struct{}
}

func (f *fakeFeed) Subscribe(fn simulator.Listener) func() {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
	f.subscribed <- struct{}{}
	return func() {}
}

func (f *fakeFeed) Vehicles() []models.Vehicle {
	return append([]models.Vehicle(nil), f.vehicles...)
}

func (f *fakeFeed) broadcast(v []models.Vehicle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.listeners {
		l(v)
	}
}

type testAPI struct {
	router   http.Handler
	auth     *auth.Service
	sessions *session.Store
	store    *mockstore.Store
}

func newTestAPI(t *testing.T, flags config.FeatureFlags, remote dataservice.Backend, feed Broadcaster) *testAPI {
	kv, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	authService := auth.NewService(auth.Options{JWTSecret: "test-secret", DevMode: true}, kv, nil)
	sessions := session.NewStore(kv)
	store := mockstore.NewStore(mockstore.WithDelayScale(0))
	data := dataservice.New(flags, store, remote)
	router := NewRouter(Deps{
		Auth:      authService,
		Sessions:  sessions,
		Data:      data,
		Queue:     offline.NewQueue(kv, data),
		Positions: feed,
	})
	return &testAPI{router: router, auth: authService, sessions: sessions, store: store}
}

func (a *testAPI) token(t *testing.T, role models.Role, orgID string) string {
	token, err := a.auth.GenerateToken(models.Claims{
		UserID: "dev_1",
		Phone:  "+15550103",
		Role:   role,
		OrgID:  orgID,
		Exp:    time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func readSession(t *testing.T, w *httptest.ResponseRecorder) models.Session {
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sess models.Session
	decode(t, w, &sess)
	return sess
}

func (a *testAPI) login(t *testing.T, req models.VerifyRequest) (string, models.Session) {
	w := a.do(t, http.MethodPost, "/api/auth/otp", "", otpRequest{Phone: req.Phone})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodPost, "/api/auth/verify", "", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Success bool           `json:"success"`
		Token   string         `json:"token"`
		Session models.Session `json:"session"`
	}
	decode(t, w, &res)
	require.True(t, res.Success)
	return res.Token, res.Session
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, config.DefaultFeatureFlags(), nil, nil)
	w := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"remote":false`)
}

func TestAPI_RequiresToken(t *testing.T) {
	api := newTestAPI(t, config.DefaultFeatureFlags(), nil, nil)
	w := api.do(t, http.MethodGet, "/api/trips", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_OTPLogin(t *testing.T) {
	api := newTestAPI(t, config.DefaultFeatureFlags(), nil, nil)

	t.Run("verify without otp request", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/auth/verify", "", models.VerifyRequest{Phone: "+15550199", OTP: "123456"})
		assert.Equal(t, http.StatusOK, w.Code)
		var res auth.Result
		decode(t, w, &res)
		assert.False(t, res.Success)
		assert.Equal(t, "Please request OTP first", res.Error)
	})

	t.Run("wrong code", func(t *testing.T) {
		require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/auth/otp", "", otpRequest{Phone: "15550103"}).Code)
		w := api.do(t, http.MethodPost, "/api/auth/verify", "", models.VerifyRequest{Phone: "15550103", OTP: "000000"})
		var res auth.Result
		decode(t, w, &res)
		assert.False(t, res.Success)
		assert.Equal(t, "Invalid OTP. Use 123456 for testing", res.Error)
	})

	t.Run("successful login opens a session", func(t *testing.T) {
		token, sess := api.login(t, models.VerifyRequest{
			Phone: "15550103", OTP: "123456", Role: models.RoleFleet, OrgID: "org1", BranchID: "b1",
		})
		assert.True(t, sess.LoggedIn)
		assert.Equal(t, "+15550103", sess.Phone)
		assert.Equal(t, models.RoleFleet, sess.Role)
		require.NotNil(t, sess.Org)
		assert.Equal(t, "Apex Logistics", sess.Org.Name)
		require.NotNil(t, sess.Branch)
		assert.Equal(t, "Mumbai Hub", sess.Branch.Name)

		claims, err := api.auth.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, sess.UserID, claims.UserID)
		assert.Equal(t, "org1", claims.OrgID)
		assert.Equal(t, "b1", claims.BranchID)

		w := api.do(t, http.MethodGet, "/api/session", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var res sessionResponse
		decode(t, w, &res)
		assert.True(t, res.Valid)
		assert.Equal(t, sess.UserID, res.Session.UserID)
		assert.Equal(t, token, res.Session.Token)
	})

	t.Run("unknown organization", func(t *testing.T) {
		require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/auth/otp", "", otpRequest{Phone: "15550104"}).Code)
		w := api.do(t, http.MethodPost, "/api/auth/verify", "", models.VerifyRequest{Phone: "15550104", OTP: "123456", OrgID: "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuth_LoginAppliesStoredUser(t *testing.T) {
	flags := config.DefaultFeatureFlags()
	flags.Enabled = true
	remote := new(MockBackend)
	remote.On("FetchUserByPhone", mock.Anything, "+919876500000").Return(models.User{
		ID: "u7", Phone: "+919876500000", Role: models.UserRoleFleetManager, OrgID: "org7", BranchID: "b7",
	}, nil)
	remote.On("FetchUserByPhone", mock.Anything, "+15550111").Return(models.User{}, models.ErrUserNotFound)
	remote.On("FetchOrganizations", mock.Anything).Return([]models.Org{{ID: "org7", Name: "SIT Logistics"}}, nil)
	remote.On("FetchBranches", mock.Anything, "org7").Return([]models.Branch{{ID: "b7", Name: "Pune Yard", OrgID: "org7"}}, nil)

	api := newTestAPI(t, flags, remote, nil)

	_, sess := api.login(t, models.VerifyRequest{Phone: "919876500000", OTP: "123456"})
	assert.Equal(t, models.RoleFleet, sess.Role)
	require.NotNil(t, sess.Org)
	assert.Equal(t, "SIT Logistics", sess.Org.Name)
	require.NotNil(t, sess.Branch)
	assert.Equal(t, "Pune Yard", sess.Branch.Name)

	_, sess = api.login(t, models.VerifyRequest{Phone: "15550111", OTP: "123456"})
	assert.Empty(t, sess.Role)
	assert.Nil(t, sess.Org)

	remote.AssertExpectations(t)
}

func TestSession_Selections(t *testing.T) {
	api := newTestAPI(t, config.DefaultFeatureFlags(), nil, nil)
	token, _ := api.login(t, models.VerifyRequest{Phone: "15550103", OTP: "123456"})

	w := api.do(t, http.MethodPost, "/api/session/branch", token, map[string]string{"branchId": "b1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/session/role", token, map[string]string{"role": "Admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	sess := readSession(t, api.do(t, http.MethodPost, "/api/session/role", token, map[string]string{"role": "Driver"}))
	assert.Equal(t, models.RoleDriver, sess.Role)
	claims, err := api.auth.ValidateToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDriver, claims.Role)

	sess = readSession(t, api.do(t, http.MethodPost, "/api/session/org", sess.Token, map[string]string{"orgId": "org1"}))
	require.NotNil(t, sess.Org)

	w = api.do(t, http.MethodPost, "/api/session/branch", sess.Token, map[string]string{"branchId": "b3"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "b3 belongs to org2")

	sess = readSession(t, api.do(t, http.MethodPost, "/api/session/branch", sess.Token, map[string]string{"branchId": "b2"}))
	require.NotNil(t, sess.Branch)
	assert.Equal(t, "Delhi Hub", sess.Branch.Name)
	claims, err = api.auth.ValidateToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "b2", claims.BranchID)

	sess = readSession(t, api.do(t, http.MethodPost, "/api/session/org", sess.Token, map[string]string{"orgId": "org2"}))
	assert.Nil(t, sess.Branch, "changing organization drops the branch")

	sess = readSession(t, api.do(t, http.MethodPost, "/api/session/offline", sess.Token, nil))
	assert.True(t, sess.OfflineMode)

	w = api.do(t, http.MethodPost, "/api/session/logout", sess.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/api/session", sess.Token, nil)
	var res sessionResponse
	decode(t, w, &res)
	assert.False(t, res.Valid)
	assert.False(t, res.Session.LoggedIn)

	w = api.do(t, http.MethodPost, "/api/session/role", sess.Token, map[string]string{"role": "Fleet"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrips(t *testing.T) {
	api := newTestAPI(t, config.DefaultFeatureFlags(), nil, nil)
	fleet := api.token(t, models.RoleFleet, "org1")
	driver := api.token(t, models.RoleDriver, "org1")

	t.Run("list and filter", func(t *testing.T) {
		var trips []models.Trip
		decode(t, api.do(t, http.MethodGet, "/api/trips", fleet, nil), &trips)
		assert.Len(t, trips, 2)

		decode(t, api.do(t, http.MethodGet, "/api/trips?status=Assigned", fleet, nil), &trips)
		require.Len(t, trips, 1)
		assert.Equal(t, "t2", trips[0].ID)

		w := api.do(t, http.MethodGet, "/api/trips?status=Lost", fleet, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		var trip models.Trip
		w := api.do(t, http.MethodGet, "/api/trips/t1", driver, nil)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &trip)
		assert.Equal(t, "TRK-1042", trip.Code)

		w = api.do(t, http.MethodGet, "/api/trips/missing", driver, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("status update", func(t *testing.T) {
		w := api.do(t, http.MethodPut, "/api/trips/t1/status", driver, statusRequest{Status: "Teleported"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = api.do(t, http.MethodPut, "/api/trips/missing/status", driver, statusRequest{Status: "Loaded"})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = api.do(t, http.MethodPut, "/api/trips/t1/status", driver, statusRequest{Status: "Draft"})
		assert.Equal(t, http.StatusBadRequest, w.Code, "reversal")
		w = api.do(t, http.MethodPut, "/api/trips/t1/status", driver, statusRequest{Status: "Completed"})
		assert.Equal(t, http.StatusBadRequest, w.Code, "skip")
		w = api.do(t, http.MethodPut, "/api/trips/t1/status", fleet, statusRequest{Status: "DropArrived"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = api.do(t, http.MethodPut, "/api/trips/t1/status", driver, statusRequest{Status: "DropArrived"})
		require.Equal(t, http.StatusOK, w.Code)

		var trip models.Trip
		decode(t, api.do(t, http.MethodGet, "/api/trips/t1", driver, nil), &trip)
		assert.Equal(t, models.TripDropArrived, trip.Status)
	})

	t.Run("events", func(t *testing.T) {
		var events []models.TripEvent
		w := api.do(t, http.MethodGet, "/api/trips/t1/events", fleet, nil)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &events)
		assert.Empty(t, events)
	})

	t.Run("advance", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/trips/t2/advance", fleet, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = api.do(t, http.MethodPost, "/api/trips/t2/advance", driver, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var trip models.Trip
		decode(t, w, &trip)
		assert.Equal(t, models.TripAccepted, trip.Status)
	})

	t.Run("create", func(t *testing.T) {
		trip := models.Trip{Pickup: "Pune", Drop: "Nashik", Customer: "Acme", Route: []models.Location{{Lat: 18.5, Lng: 73.8}, {Lat: 20.0, Lng: 73.7}}}

		w := api.do(t, http.MethodPost, "/api/trips", driver, trip)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = api.do(t, http.MethodPost, "/api/trips", fleet, trip)
		require.Equal(t, http.StatusCreated, w.Code)
		var res map[string]string
		decode(t, w, &res)
		assert.True(t, strings.HasPrefix(res["id"], "mock-trip-"))

		trip.Route = trip.Route[:1]
		w = api.do(t, http.MethodPost, "/api/trips", fleet, trip)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVehiclesInvoicesNotifications(t *testing.T) {
	api := newTestAPI(t, config.DefaultFeatureFlags(), nil, nil)
	fleet := api.token(t, models.RoleFleet, "org1")
	driver := api.token(t, models.RoleDriver, "org1")

	var vehicles []models.Vehicle
	decode(t, api.do(t, http.MethodGet, "/api/vehicles", fleet, nil), &vehicles)
	assert.Len(t, vehicles, 2)

	w := api.do(t, http.MethodPut, "/api/vehicles/v1/location", driver, models.LocationUpdate{Lat: 19.1, Lng: 72.9, Speed: 42, Heading: 370})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, http.MethodPut, "/api/vehicles/v1/location", driver, models.LocationUpdate{Lat: 19.1, Lng: 72.9, Speed: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var invoices []models.Invoice
	decode(t, api.do(t, http.MethodGet, "/api/invoices", fleet, nil), &invoices)
	assert.Len(t, invoices, 2)

	w = api.do(t, http.MethodPut, "/api/invoices/inv1/status", driver, statusRequest{Status: "Paid"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = api.do(t, http.MethodPut, "/api/invoices/inv1/status", fleet, statusRequest{Status: "Refunded"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(t, http.MethodPut, "/api/invoices/inv1/status", fleet, statusRequest{Status: "Sent"})
	assert.Equal(t, http.StatusOK, w.Code)

	var items []models.NotificationItem
	decode(t, api.do(t, http.MethodGet, "/api/notifications", driver, nil), &items)
	assert.Len(t, items, 2)
	w = api.do(t, http.MethodPost, "/api/notifications/n1/read", driver, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDirectory(t *testing.T) {
	api := newTestAPI(t, config.DefaultFeatureFlags(), nil, nil)
	fleet := api.token(t, models.RoleFleet, "org1")

	var orgs []models.Org
	decode(t, api.do(t, http.MethodGet, "/api/orgs", fleet, nil), &orgs)
	assert.Len(t, orgs, 2)

	var branches []models.Branch
	decode(t, api.do(t, http.MethodGet, "/api/orgs/org1/branches", fleet, nil), &branches)
	assert.Len(t, branches, 2)

	var drivers []models.Driver
	decode(t, api.do(t, http.MethodGet, "/api/drivers", fleet, nil), &drivers)
	assert.Len(t, drivers, 2)
}

func TestOfflineQueue(t *testing.T) {
	api := newTestAPI(t, config.DefaultFeatureFlags(), nil, nil)
	driver := api.token(t, models.RoleDriver, "")

	w := api.do(t, http.MethodPost, "/api/offline-queue", driver, map[string]interface{}{"type": "POD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/offline-queue", driver, map[string]interface{}{
		"type": "Status", "payload": map[string]string{"tripId": "t2", "status": "Accepted"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = api.do(t, http.MethodPost, "/api/offline-queue", driver, map[string]interface{}{
		"type": "POD", "payload": map[string]string{"tripId": "t2"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var pod models.PendingAction
	decode(t, w, &pod)

	var actions []models.PendingAction
	decode(t, api.do(t, http.MethodGet, "/api/offline-queue", driver, nil), &actions)
	require.Len(t, actions, 2)
	assert.Equal(t, models.ActionStatus, actions[0].Type)

	fleet := api.token(t, models.RoleFleet, "")
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodPost, "/api/offline-queue/flush", fleet, nil).Code)

	// The proof of delivery skips ahead of Accepted, so replay stops there.
	w = api.do(t, http.MethodPost, "/api/offline-queue/flush", driver, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res offline.FlushResult
	decode(t, w, &res)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Remaining)
	assert.Contains(t, res.Error, "invalid trip status")

	var trip models.Trip
	decode(t, api.do(t, http.MethodGet, "/api/trips/t2", driver, nil), &trip)
	assert.Equal(t, models.TripAccepted, trip.Status)

	w = api.do(t, http.MethodDelete, "/api/offline-queue/"+pod.ID, driver, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	decode(t, api.do(t, http.MethodGet, "/api/offline-queue", driver, nil), &actions)
	assert.Empty(t, actions)

	api.do(t, http.MethodPost, "/api/offline-queue", driver, map[string]interface{}{
		"type": "POD", "payload": map[string]string{"tripId": "t1"},
	})
	w = api.do(t, http.MethodDelete, "/api/offline-queue", driver, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	decode(t, api.do(t, http.MethodGet, "/api/offline-queue", driver, nil), &actions)
	assert.Empty(t, actions)
}

func TestScreenFlagsSelectBackend(t *testing.T) {
	flags := config.DefaultFeatureFlags()
	flags.Enabled = true
	flags.OrgID = "org-default"
	flags.Screens[config.ScreenDriverTrips] = false

	remote := new(MockBackend)
	remoteTrips := []models.Trip{{ID: "r1", Code: "TRK-R1", Status: models.TripLoaded}}
	remote.On("FetchTrips", mock.Anything, models.TripFilter{OrgID: "org9"}).Return(remoteTrips, nil)
	remote.On("FetchTrips", mock.Anything, models.TripFilter{OrgID: "org-default"}).Return(remoteTrips, nil)
	remote.On("FetchNotifications", mock.Anything, "dev_1").Return([]models.NotificationItem{}, nil)

	api := newTestAPI(t, flags, remote, nil)

	var trips []models.Trip
	decode(t, api.do(t, http.MethodGet, "/api/trips", api.token(t, models.RoleFleet, "org9"), nil), &trips)
	require.Len(t, trips, 1)
	assert.Equal(t, "r1", trips[0].ID)

	decode(t, api.do(t, http.MethodGet, "/api/trips", api.token(t, models.RoleFleet, ""), nil), &trips)
	require.Len(t, trips, 1, "falls back to the flag organization")

	decode(t, api.do(t, http.MethodGet, "/api/trips", api.token(t, models.RoleDriver, "org9"), nil), &trips)
	assert.Len(t, trips, 2, "driver trips screen is opted out and reads fixtures")

	decode(t, api.do(t, http.MethodGet, "/api/trips?screen=FLEET_TRIPS", api.token(t, models.RoleDriver, "org9"), nil), &trips)
	assert.Len(t, trips, 1)

	var items []models.NotificationItem
	decode(t, api.do(t, http.MethodGet, "/api/notifications", api.token(t, models.RoleDriver, ""), nil), &items)
	assert.Empty(t, items)

	remote.AssertExpectations(t)
}

func TestPositionStream(t *testing.T) {
	feed := &fakeFeed{
		vehicles:   []models.Vehicle{{ID: "v1", Lat: 19.07, Lng: 72.87}},
		subscribed: make(chan struct{}, 1),
	}
	api := newTestAPI(t, config.DefaultFeatureFlags(), nil, feed)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/positions/ws?token=" + api.token(t, models.RoleFleet, "")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var snapshot []models.Vehicle
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, "v1", snapshot[0].ID)

	select {
	case <-feed.subscribed:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never subscribed")
	}
	feed.broadcast([]models.Vehicle{{ID: "v1", Lat: 19.2, Lng: 72.97, Speed: 41}})

	var next []models.Vehicle
	require.NoError(t, conn.ReadJSON(&next))
	require.Len(t, next, 1)
	assert.Equal(t, 41.0, next[0].Speed)
}

func TestPositionStream_RequiresToken(t *testing.T) {
	feed := &fakeFeed{subscribed: make(chan struct{}, 1)}
	api := newTestAPI(t, config.DefaultFeatureFlags(), nil, feed)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/positions/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
