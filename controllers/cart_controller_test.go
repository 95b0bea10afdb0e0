package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/k-tong-dev/v0-elearning-sub007/controllers"
	"github.com/k-tong-dev/v0-elearning-sub007/middleware"
	"github.com/k-tong-dev/v0-elearning-sub007/models"
	"github.com/k-tong-dev/v0-elearning-sub007/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// ---- in-memory cart backend ----

type memCartBackend struct {
	mu    sync.Mutex
	items map[string][]models.CartItem
}

func newMemCartBackend() *memCartBackend {
	return &memCartBackend{items: map[string][]models.CartItem{}}
}

func (m *memCartBackend) List(_ context.Context, ownerID string) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CartItem(nil), m.items[ownerID]...), nil
}

func (m *memCartBackend) Add(_ context.Context, ownerID string, item models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[ownerID] = append(m.items[ownerID], item)
	return nil
}

func (m *memCartBackend) Remove(_ context.Context, ownerID string, courseKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[ownerID][:0]
	for _, item := range m.items[ownerID] {
		if item.CourseKey != courseKey {
			kept = append(kept, item)
		}
	}
	m.items[ownerID] = kept
	return nil
}

func (m *memCartBackend) Clear(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, ownerID)
	return nil
}

// ---- fixture ----

func catalogStub(t *testing.T, courses map[string]services.Course) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/courses/internal/")
		course, ok := courses[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(course)
	}))
}

func cartRouter(guest, user *memCartBackend, catalogURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	catalog := services.NewCatalogClient(catalogURL)
	syncEngine := services.NewCartSyncEngine(guest, user, zap.NewNop())
	cc := controllers.NewCartController(guest, user, catalog, syncEngine, zap.NewNop())

	r := gin.New()
	cart := r.Group("/cart")
	cart.Use(func(c *gin.Context) {
		// stand-in for the identity middleware: trust plain headers
		if userID := c.GetHeader("X-Test-User"); userID != "" {
			c.Set(middleware.UserKey, userID)
		} else if guestID := c.GetHeader("X-Guest-ID"); guestID != "" {
			c.Set(middleware.GuestKey, guestID)
		}
	})
	cart.GET("", cc.GetCart)
	cart.POST("/items", cc.AddItem)
	cart.DELETE("/items/:course_key", cc.RemoveItem)
	cart.POST("/sync", cc.SyncCart)
	return r
}

func doJSON(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

// ---- tests ----

func TestCartController_AddAndGet(t *testing.T) {
	catalog := catalogStub(t, map[string]services.Course{
		"go-101": {ID: "c-1", CourseKey: "go-101", Name: "Go 101", Price: 49.99, Currency: "usd", InstructorID: "3"},
	})
	defer catalog.Close()

	guest := newMemCartBackend()
	r := cartRouter(guest, newMemCartBackend(), catalog.URL)
	headers := map[string]string{"X-Guest-ID": "device-1"}

	w := doJSON(r, http.MethodPost, "/cart/items", `{"course_key":"go-101"}`, headers)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/cart", "", headers)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []models.CartItem `json:"items"`
		Total float64           `json:"total"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, 49.99, resp.Total)
}

func TestCartController_DuplicateAddIsWarningNotError(t *testing.T) {
	catalog := catalogStub(t, map[string]services.Course{
		"go-101": {ID: "c-1", CourseKey: "go-101", Name: "Go 101", Price: 49.99},
	})
	defer catalog.Close()

	guest := newMemCartBackend()
	r := cartRouter(guest, newMemCartBackend(), catalog.URL)
	headers := map[string]string{"X-Guest-ID": "device-1"}

	w := doJSON(r, http.MethodPost, "/cart/items", `{"course_key":"go-101"}`, headers)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/cart/items", `{"course_key":"go-101"}`, headers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "warning")

	assert.Len(t, guest.items["device-1"], 1)
}

func TestCartController_UnknownCourse(t *testing.T) {
	catalog := catalogStub(t, map[string]services.Course{})
	defer catalog.Close()

	r := cartRouter(newMemCartBackend(), newMemCartBackend(), catalog.URL)
	w := doJSON(r, http.MethodPost, "/cart/items", `{"course_key":"nope"}`, map[string]string{"X-Guest-ID": "device-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartController_SyncMergesGuestCart(t *testing.T) {
	catalog := catalogStub(t, nil)
	defer catalog.Close()

	guest := newMemCartBackend()
	user := newMemCartBackend()
	guest.items["device-1"] = []models.CartItem{
		{EntryID: "e1", CourseID: "c-1", CourseKey: "go-101", UnitPrice: 49.99},
	}
	user.items["user-9"] = []models.CartItem{
		{EntryID: "e2", CourseID: "c-2", CourseKey: "rust-201", UnitPrice: 30},
	}

	r := cartRouter(guest, user, catalog.URL)
	w := doJSON(r, http.MethodPost, "/cart/sync", "", map[string]string{
		"X-Test-User": "user-9",
		"X-Guest-ID":  "device-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Len(t, user.items["user-9"], 2)
	assert.Empty(t, guest.items["device-1"])
}

func TestCartController_SyncRequiresUser(t *testing.T) {
	catalog := catalogStub(t, nil)
	defer catalog.Close()

	r := cartRouter(newMemCartBackend(), newMemCartBackend(), catalog.URL)
	w := doJSON(r, http.MethodPost, "/cart/sync", "", map[string]string{"X-Guest-ID": "device-1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
