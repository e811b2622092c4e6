package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/franzego/uninotify/internal/notice"
	"github.com/franzego/uninotify/internal/queue"
	"github.com/franzego/uninotify/internal/services"
	"github.com/franzego/uninotify/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGenerator records prompts and returns a canned completion.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, req services.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Prompt)
	return f.reply, f.err
}

func (f *fakeGenerator) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event queue.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

type stubBreaker gobreaker.State

func (s stubBreaker) State() gobreaker.State { return gobreaker.State(s) }

func templateFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/data/Student/course_registration.txt": "**Betreff:** Kursanmeldung\n{time_start} - {time_end}\n{target_group}\n{name}\n---\n**Subject:** Course registration\n{time_start} - {time_end}\n{target_group}\n{name}",
		"/data/Student/student_reply.txt":       "Liebe/r {student_name},\nvielen Dank.\n{name}",
		"/data/All/holiday_notice.txt":          "{holiday_name}: {holiday_date}\n{name}",
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func setupNotificationRouter(t *testing.T, gen services.Generator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	templates := services.NewTemplateService(notice.NewLoader(templateFs(t), "/data"), logger)
	svc := services.NewNotificationService(gen, templates, queue.NopPublisher{}, false, logger)
	h := NewNotificationHandler(svc, templates, logger)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/generate", h.Generate)
	api.POST("/student_reply", h.StudentReply)
	api.POST("/holiday_notice", h.HolidayNotice)
	api.POST("/free_prompt", h.FreePrompt)
	api.POST("/gemini_edit", h.Edit)
	api.GET("/self_templates", h.SelfTemplates)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestGenerate_CourseRegistration(t *testing.T) {
	gen := &fakeGenerator{reply: "**Betreff:** Kursanmeldung\nText\n---\n**Subject:** Course registration\nText"}
	router := setupNotificationRouter(t, gen)

	w := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"templateType":   "course_registration",
		"startDate":      "01.03.2024",
		"endDate":        "15.05.2024",
		"targetAudience": "Master students",
		"name":           "Exam Office",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["content"])
	assert.Contains(t, body["content"], "<br>")

	prompts := gen.calls()
	require.Len(t, prompts, 1)
	for _, want := range []string{"01.03.2024", "15.05.2024", "Master students", "Exam Office"} {
		assert.Contains(t, prompts[0], want)
	}
}

func TestGenerate_StringifiesNonStringFields(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	router := setupNotificationRouter(t, gen)

	w := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"templateType":   "course_registration",
		"targetAudience": 42,
		"name":           nil,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, gen.calls(), 1)
	assert.Contains(t, gen.calls()[0], "42")
	assert.Contains(t, gen.calls()[0], "{name}")
}

func TestGenerate_ClientErrors(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown kind", map[string]interface{}{"templateType": "exam_results"}},
		{"missing kind", map[string]interface{}{"name": "x"}},
		{"malformed body", `{"templateType":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: "unused"}
			router := setupNotificationRouter(t, gen)

			w := doJSON(router, http.MethodPost, "/api/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["detail"])
			assert.Empty(t, gen.calls())
		})
	}
}

func TestGenerate_GenerationFailureEchoesMessage(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	router := setupNotificationRouter(t, gen)

	w := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"templateType": "course_registration",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "quota exceeded")
	assert.Contains(t, body["detail"], "quota exceeded")
	assert.Nil(t, body["content"])
}

func TestGenerate_FailureWritesNoRecord(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	router := setupNotificationRouter(t, gen)

	fs := afero.NewMemMapFs()
	drafts, err := store.NewFileStore(fs, "drafts", "/data/drafts.json")
	require.NoError(t, err)
	templates, err := store.NewFileStore(fs, "templates", "/data/templates.json")
	require.NoError(t, err)
	draftHandler := NewRecordHandler(drafts, DraftEvents, queue.NopPublisher{}, zap.NewNop())
	templateHandler := NewRecordHandler(templates, TemplateEvents, queue.NopPublisher{}, zap.NewNop())
	router.GET("/api/drafts", draftHandler.List)
	router.GET("/api/templates", templateHandler.List)

	w := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"templateType": "course_registration",
		"startDate":    "01.03.2024",
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, gen.calls(), 1)

	for _, path := range []string{"/api/drafts", "/api/templates"} {
		w = doJSON(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, "[]", w.Body.String(), path)
	}
	exists, err := afero.Exists(fs, "/data/drafts.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGenerate_MissingTemplateIsServerError(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	router := setupNotificationRouter(t, gen)

	w := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"templateType": "schedule_change",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, gen.calls())
}

func TestStudentReplyAndHolidayNotice(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	router := setupNotificationRouter(t, gen)

	w := doJSON(router, http.MethodPost, "/api/student_reply", map[string]string{
		"student_name": "Alex",
		"name":         "Exam Office",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Liebe/r Alex,<br>vielen Dank.<br>Exam Office", decodeBody(t, w)["content"])

	w = doJSON(router, http.MethodPost, "/api/holiday_notice", map[string]string{
		"holiday_name": "Pfingstmontag",
		"holiday_date": "09.06.2025",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pfingstmontag: 09.06.2025<br>Student Service Center", decodeBody(t, w)["content"])

	assert.Empty(t, gen.calls())
}

func TestFreePrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "Hinweis\n---\nNotice"}
	router := setupNotificationRouter(t, gen)

	w := doJSON(router, http.MethodPost, "/api/free_prompt", map[string]string{
		"prompt": "Printer on floor 2 is broken",
		"tone":   "firm",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hinweis<br>---<br>Notice", decodeBody(t, w)["content"])

	w = doJSON(router, http.MethodPost, "/api/free_prompt", map[string]string{"prompt": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/free_prompt", map[string]string{"tone": "firm"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, gen.calls(), 1)
}

func TestEdit(t *testing.T) {
	gen := &fakeGenerator{reply: "Neu\n---\nNew"}
	router := setupNotificationRouter(t, gen)

	w := doJSON(router, http.MethodPost, "/api/gemini_edit", map[string]string{
		"content":     "Alt<br>---<br>Old",
		"instruction": "make it shorter",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Neu<br>---<br>New", decodeBody(t, w)["content"])
	require.Len(t, gen.calls(), 1)
	assert.Contains(t, gen.calls()[0], "Alt\n---\nOld")
}

func TestSelfTemplates(t *testing.T) {
	router := setupNotificationRouter(t, &fakeGenerator{})

	w := doJSON(router, http.MethodGet, "/api/self_templates", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "course_registration", list[0]["id"])
	assert.Equal(t, "Course Registration", list[0]["title"])
}

func setupRecordRouter(st store.Store, pub queue.Publisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRecordHandler(st, DraftEvents, pub, zap.NewNop())
	router := gin.New()
	drafts := router.Group("/api/drafts")
	drafts.GET("", h.List)
	drafts.POST("", h.Create)
	drafts.GET("/:id", h.Get)
	drafts.PUT("/:id", h.Update)
	drafts.DELETE("/:id", h.Delete)
	return router
}

func recordStores(t *testing.T) map[string]store.Store {
	fileStore, err := store.NewFileStore(afero.NewMemMapFs(), "drafts", "/data/drafts.json")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return map[string]store.Store{
		"file":  fileStore,
		"redis": store.NewRedisStore(rdb, "drafts"),
	}
}

func TestRecordHandler_CRUD(t *testing.T) {
	for name, st := range recordStores(t) {
		t.Run(name, func(t *testing.T) {
			pub := new(MockPublisher)
			pub.On("Publish", mock.Anything, mock.MatchedBy(func(e queue.Event) bool {
				return e.Type == queue.DraftCreated
			})).Return(nil).Once()
			pub.On("Publish", mock.Anything, mock.MatchedBy(func(e queue.Event) bool {
				return e.Type == queue.DraftUpdated
			})).Return(nil).Once()
			pub.On("Publish", mock.Anything, mock.MatchedBy(func(e queue.Event) bool {
				return e.Type == queue.DraftDeleted
			})).Return(errors.New("broker down")).Once()
			router := setupRecordRouter(st, pub)

			w := doJSON(router, http.MethodPost, "/api/drafts", map[string]interface{}{
				"id":      "client-chosen",
				"title":   "Kursanmeldung",
				"content": "Hallo<br>Hello",
			})
			require.Equal(t, http.StatusCreated, w.Code)
			created := decodeBody(t, w)
			id, _ := created["id"].(string)
			require.NotEmpty(t, id)
			assert.NotEqual(t, "client-chosen", id)

			w = doJSON(router, http.MethodGet, "/api/drafts/"+id, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "Kursanmeldung", decodeBody(t, w)["title"])

			w = doJSON(router, http.MethodPut, "/api/drafts/"+id, map[string]interface{}{
				"id":    "other",
				"title": "Course registration",
			})
			require.Equal(t, http.StatusOK, w.Code)
			updated := decodeBody(t, w)
			assert.Equal(t, id, updated["id"])
			assert.Equal(t, "Course registration", updated["title"])
			assert.Equal(t, "Hallo<br>Hello", updated["content"])

			w = doJSON(router, http.MethodGet, "/api/drafts", nil)
			require.Equal(t, http.StatusOK, w.Code)
			var list []map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
			assert.Len(t, list, 1)

			w = doJSON(router, http.MethodDelete, "/api/drafts/"+id, nil)
			assert.Equal(t, http.StatusOK, w.Code)

			w = doJSON(router, http.MethodGet, "/api/drafts/"+id, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)

			pub.AssertExpectations(t)
		})
	}
}

func TestRecordHandler_NotFoundAndBadBody(t *testing.T) {
	for name, st := range recordStores(t) {
		t.Run(name, func(t *testing.T) {
			router := setupRecordRouter(st, queue.NopPublisher{})

			w := doJSON(router, http.MethodPut, "/api/drafts/missing", map[string]string{"title": "x"})
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "Not Found", decodeBody(t, w)["message"])

			w = doJSON(router, http.MethodPost, "/api/drafts", `["not", "an", "object"]`)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			w = doJSON(router, http.MethodDelete, "/api/drafts/missing", nil)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	st := store.NewRedisStore(rdb, "drafts")

	pub := new(MockPublisher)
	pub.On("IsConnected").Return(true)

	h := NewHealthHandler([]store.Store{st}, rdb, pub, stubBreaker(gobreaker.StateClosed))
	router := gin.New()
	router.GET("/health", h.HealthCheck)

	w := doJSON(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])

	h.breaker = stubBreaker(gobreaker.StateOpen)
	w = doJSON(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", decodeBody(t, w)["status"])

	mr.Close()
	w = doJSON(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decodeBody(t, w)["status"])
}
