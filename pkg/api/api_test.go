package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/service"
	"foodshare/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	svc := service.New(memory.New(), logger.NewNop(), service.Options{})
	return &testServer{t: t, router: NewRouter(svc, logger.NewNop(), Options{RateLimitRPS: 1000, RateLimitBurst: 1000})}
}

func (s *testServer) do(method, path string, actor *models.User, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(headerUserID, strconv.FormatInt(actor.ID, 10))
		req.Header.Set(headerUserRole, string(actor.Role))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(name string, role models.Role) *models.User {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", nil, map[string]interface{}{"name": name, "role": role})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var u models.User
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &u))
	return &u
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func donationPath(id int64, suffix string) string {
	return "/api/donations/" + strconv.FormatInt(id, 10) + suffix
}

func TestAPI_DeliveryFlow(t *testing.T) {
	s := newTestServer(t)
	donor := s.register("Dana", models.RoleDonor)
	receiver := s.register("Ravi", models.RoleReceiver)
	volunteer := s.register("Vik", models.RoleVolunteer)

	w := s.do(http.MethodPost, "/api/donations", donor, map[string]interface{}{
		"food_type": "idli",
		"quantity":  20,
		"location":  map[string]interface{}{"lat": 12.9, "lng": 77.6, "address": "Jayanagar"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	d := decode[models.Donation](t, w)
	assert.Equal(t, models.StatusAvailable, d.Status)

	w = s.do(http.MethodGet, "/api/donations", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Donation](t, w), 1)

	w = s.do(http.MethodPut, donationPath(d.ID, "/claim"), receiver, map[string]bool{"delivery_needed": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPut, donationPath(d.ID, "/accept"), volunteer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusInTransit, decode[models.Donation](t, w).Status)

	w = s.do(http.MethodPut, donationPath(d.ID, "/deliver"), volunteer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusDelivered, decode[models.Donation](t, w).Status)

	w = s.do(http.MethodGet, "/api/donations/leaderboard", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[models.Leaderboard](t, w)
	require.NotEmpty(t, board.Volunteers)
	assert.Equal(t, volunteer.ID, board.Volunteers[0].UserID)
	assert.Equal(t, int64(50), board.Volunteers[0].Points)

	w = s.do(http.MethodGet, "/api/points/"+strconv.FormatInt(donor.ID, 10), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 20, decode[map[string]interface{}](t, w)["points"])

	w = s.do(http.MethodGet, "/api/notifications/"+strconv.FormatInt(donor.ID, 10), donor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inbox := decode[service.NotificationList](t, w)
	require.Len(t, inbox.Notifications, 3)

	w = s.do(http.MethodPut, "/api/notifications/"+inbox.Notifications[0].ID.String()+"/read", donor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Notification](t, w).IsRead)

	w = s.do(http.MethodGet, "/api/notifications/"+strconv.FormatInt(donor.ID, 10), receiver, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPI_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	donor := s.register("Dana", models.RoleDonor)
	receiver := s.register("Ravi", models.RoleReceiver)
	volunteer := s.register("Vik", models.RoleVolunteer)

	w := s.do(http.MethodPost, "/api/donations", donor, map[string]interface{}{
		"food_type": "idli", "quantity": 0, "address": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "quantity", decode[map[string]string](t, w)["field"])

	w = s.do(http.MethodPost, "/api/donations", nil, map[string]interface{}{"food_type": "idli", "quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/donations", receiver, map[string]interface{}{"food_type": "idli", "quantity": 1, "address": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, donationPath(404, ""), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/donations", donor, map[string]interface{}{
		"food_type": "idli", "quantity": 2, "location": map[string]interface{}{"lat": 1, "lng": 1, "address": "x"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	d := decode[models.Donation](t, w)

	w = s.do(http.MethodPut, donationPath(d.ID, "/claim"), receiver, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[models.Donation](t, w).DeliveryNeeded)

	w = s.do(http.MethodPut, donationPath(d.ID, "/accept"), volunteer, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "claimed", body["current_status"])
	assert.Equal(t, "accept", body["attempted"])

	other := s.register("Rosa", models.RoleReceiver)
	w = s.do(http.MethodPut, donationPath(d.ID, "/claim"), other, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode[map[string]string](t, w)["error"])

	w = s.do(http.MethodDelete, donationPath(d.ID, ""), donor, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/donations/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_RoleFromStore(t *testing.T) {
	s := newTestServer(t)
	donor := s.register("Dana", models.RoleDonor)

	req := httptest.NewRequest(http.MethodPost, "/api/donations", bytes.NewBufferString(`{"food_type":"roti","quantity":3,"address":"x","location":{"lat":1,"lng":1}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerUserID, strconv.FormatInt(donor.ID, 10))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/donations", nil)
	req.Header.Set(headerUserID, "999")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_ConcurrentClaim(t *testing.T) {
	s := newTestServer(t)
	donor := s.register("Dana", models.RoleDonor)
	receivers := []*models.User{s.register("R1", models.RoleReceiver), s.register("R2", models.RoleReceiver)}

	w := s.do(http.MethodPost, "/api/donations", donor, map[string]interface{}{
		"food_type": "rice", "quantity": 5, "location": map[string]interface{}{"lat": 1, "lng": 1, "address": "x"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	d := decode[models.Donation](t, w)

	codes := make([]int, len(receivers))
	var wg sync.WaitGroup
	for i, r := range receivers {
		wg.Add(1)
		go func(i int, r *models.User) {
			defer wg.Done()
			codes[i] = s.do(http.MethodPut, donationPath(d.ID, "/claim"), r, nil).Code
		}(i, r)
	}
	wg.Wait()
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)
}

func TestAPI_RateLimit(t *testing.T) {
	svc := service.New(memory.New(), logger.NewNop(), service.Options{})
	router := NewRouter(svc, logger.NewNop(), Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	var codes []int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/donations", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
