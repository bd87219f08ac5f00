package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/supertutor/internal/auth"
	"github.com/abhisek/supertutor/internal/config"
	"github.com/abhisek/supertutor/internal/course"
	"github.com/abhisek/supertutor/internal/curriculum"
	"github.com/abhisek/supertutor/internal/metrics"
	"github.com/abhisek/supertutor/internal/session"
	"github.com/abhisek/supertutor/internal/store"
)

type memDocs struct {
	mu   sync.Mutex
	docs map[string]*store.LearnerDocument
	fail error
}

func (m *memDocs) Read(_ context.Context, userID string) (*store.LearnerDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[userID]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (m *memDocs) Write(_ context.Context, userID string, p store.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	d, ok := m.docs[userID]
	if !ok {
		d = &store.LearnerDocument{UserID: userID}
		m.docs[userID] = d
	}
	p.Apply(d)
	return nil
}

type testEnv struct {
	srv  *Server
	http *httptest.Server
	auth *auth.Service
	docs *memDocs
}

func newEnv(t *testing.T, rl config.RateLimitConfig) *testEnv {
	t.Helper()
	svc, err := auth.NewService("test-secret", "supertutor", time.Hour)
	require.NoError(t, err)
	bank, err := curriculum.DefaultBank()
	require.NoError(t, err)
	docs := &memDocs{docs: make(map[string]*store.LearnerDocument)}

	cfg := config.Default().Server
	cfg.DevToken = true
	srv, err := New(cfg, rl, Deps{
		Auth:      svc,
		Bank:      bank,
		Documents: docs,
		Metrics:   metrics.New(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, http: ts, auth: svc, docs: docs}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, _, err := e.auth.Issue(auth.User{ID: userID, DisplayName: "Learner " + userID})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.http.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func createCourse(t *testing.T, e *testEnv, tok, prompt, mode string) course.Course {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/v1/courses", tok, map[string]string{"prompt": prompt, "mode": mode})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	raw, err := json.Marshal(body["course"])
	require.NoError(t, err)
	var c course.Course
	require.NoError(t, json.Unmarshal(raw, &c))
	return c
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})

	resp, body := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, _ = e.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthReportsDependencyFailure(t *testing.T) {
	svc, err := auth.NewService("s", "", time.Hour)
	require.NoError(t, err)
	srv, err := New(config.Default().Server, config.RateLimitConfig{}, Deps{
		Auth:   svc,
		Health: func(context.Context) error { return errors.New("db gone") },
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db gone")
}

func TestNew_RequiresAuth(t *testing.T) {
	_, err := New(config.Default().Server, config.RateLimitConfig{}, Deps{})
	assert.Error(t, err)
}

func TestDevToken(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})

	resp, body := e.do(t, http.MethodPost, "/auth/token", "", map[string]string{"userId": "ada", "displayName": "Ada"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tok, _ := body["accessToken"].(string)
	require.NotEmpty(t, tok)

	resp, body = e.do(t, http.MethodGet, "/v1/profile", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.Equal(t, "ada", user["id"])

	resp, _ = e.do(t, http.MethodPost, "/auth/token", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDevTokenDisabled(t *testing.T) {
	svc, err := auth.NewService("s", "", time.Hour)
	require.NoError(t, err)
	srv, err := New(config.Default().Server, config.RateLimitConfig{}, Deps{Auth: svc})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"userId":"x"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestV1RequiresToken(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})
	resp, _ := e.do(t, http.MethodGet, "/v1/courses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/v1/courses", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCourseLifecycle(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})
	tok := e.token(t, "u1")

	resp, body := e.do(t, http.MethodPost, "/v1/courses", tok, map[string]string{"prompt": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, session.ErrBlankPrompt.Error(), body["error"])

	resp, _ = e.do(t, http.MethodPost, "/v1/courses", tok, map[string]string{"prompt": "chess", "mode": "weird"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	first := createCourse(t, e, tok, "chess", "")
	assert.Equal(t, "Chess Mastery", first.Title)
	second := createCourse(t, e, tok, "science", "curated")
	assert.Equal(t, course.ModeCurated, second.Mode)

	resp, body = e.do(t, http.MethodGet, "/v1/courses", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["courses"], 2)
	assert.Equal(t, second.ID, body["activeCourseId"])

	resp, _ = e.do(t, http.MethodGet, "/v1/courses/"+first.ID, tok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/v1/courses/missing", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = e.do(t, http.MethodPost, "/v1/courses/"+first.ID+"/activate", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first.ID, body["activeCourseId"])
	resp, _ = e.do(t, http.MethodPost, "/v1/courses/missing/activate", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Persisted for the user.
	doc, err := e.docs.Read(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Len(t, doc.Courses, 2)
	assert.Equal(t, first.ID, doc.ActiveCourseID)
	assert.Equal(t, "Learner u1", doc.DisplayName)
}

func TestSubmitUsesDraftAndBody(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})
	tok := e.token(t, "u1")
	crs := createCourse(t, e, tok, "chess", "")
	mod := crs.Modules[0]
	var mc course.Activity
	for _, a := range mod.Activities {
		if a.Type == course.TypeMultipleChoice {
			mc = a
		}
	}
	submitPath := "/v1/courses/" + crs.ID + "/modules/" + mod.ID + "/activities/" + mc.ID + "/submit"

	resp, body := e.do(t, http.MethodPost, submitPath, tok, map[string]string{"response": "wrong"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sub := body["submission"].(map[string]any)
	assert.Equal(t, false, sub["result"].(map[string]any)["correct"])
	assert.Equal(t, true, sub["interactive"])

	resp, _ = e.do(t, http.MethodPut, "/v1/drafts/"+mc.ID, tok, map[string]string{"text": mc.CorrectAnswer})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = e.do(t, http.MethodPost, submitPath, tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sub = body["submission"].(map[string]any)
	assert.Equal(t, true, sub["result"].(map[string]any)["correct"])
	assert.EqualValues(t, 2, sub["activity"].(map[string]any)["attempts"])
	assert.Equal(t, false, sub["interactive"])

	resp, _ = e.do(t, http.MethodPost, "/v1/courses/"+crs.ID+"/modules/"+mod.ID+"/activities/nope/submit", tok, map[string]string{"response": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/v1/progress", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 9, body["totalActivities"])
	assert.EqualValues(t, 1, body["correctAttempts"])
	assert.EqualValues(t, 1, body["incorrectAttempts"])
}

func TestSubmitRejectsMasteredMultipleChoice(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})
	tok := e.token(t, "u1")
	crs := createCourse(t, e, tok, "chess", "")
	mod := crs.Modules[0]
	var mc, fr course.Activity
	for _, a := range mod.Activities {
		switch a.Type {
		case course.TypeMultipleChoice:
			mc = a
		case course.TypeFreeResponse:
			fr = a
		}
	}
	base := "/v1/courses/" + crs.ID + "/modules/" + mod.ID + "/activities/"

	resp, _ := e.do(t, http.MethodPost, base+mc.ID+"/submit", tok, map[string]string{"response": mc.CorrectAnswer})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, base+mc.ID+"/submit", tok, map[string]string{"response": "wrong"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, session.ErrActivityLocked.Error(), body["error"])

	resp, body = e.do(t, http.MethodGet, "/v1/progress?courseId="+crs.ID, tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["masteredActivities"])
	assert.EqualValues(t, 0, body["incorrectAttempts"])

	// Free responses stay open after a correct answer.
	answer := strings.Join(fr.Keywords, " ")
	for i := 0; i < 2; i++ {
		resp, body = e.do(t, http.MethodPost, base+fr.ID+"/submit", tok, map[string]string{"response": answer})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["submission"].(map[string]any)["interactive"])
	}
}

func TestStagedCourse(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})
	tok := e.token(t, "u1")

	staged := createCourse(t, e, tok, "chess", "staged")
	require.Len(t, staged.Modules, 1)

	resp, body := e.do(t, http.MethodPost, "/v1/courses/"+staged.ID+"/stages", tok, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	mod := body["module"].(map[string]any)
	assert.Equal(t, "Chapter 2: Deep Dive Chess", mod["title"])

	gen := createCourse(t, e, tok, "go", "")
	resp, _ = e.do(t, http.MethodPost, "/v1/courses/"+gen.ID+"/stages", tok, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestOnboardingProfileCatalog(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})
	tok := e.token(t, "u1")

	resp, body := e.do(t, http.MethodGet, "/v1/catalog", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["subjects"], "Mathematics")
	assert.Len(t, body["modes"], 3)
	assert.Equal(t, false, body["generationAvailable"])

	resp, _ = e.do(t, http.MethodPut, "/v1/onboarding", tok, map[string]string{"primaryGoal": "fun"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = e.do(t, http.MethodPut, "/v1/onboarding", tok, map[string]string{"primaryGoal": "fun", "focusArea": "Arts"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ob := body["onboarding"].(map[string]any)
	assert.Equal(t, true, ob["onboardingComplete"])

	resp, body = e.do(t, http.MethodGet, "/v1/profile", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Arts", body["onboarding"].(map[string]any)["focusArea"])
	assert.Equal(t, "Explorer", body["profile"].(map[string]any)["level"])
}

func TestSyncEndpoints(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})
	tok := e.token(t, "u1")

	e.docs.mu.Lock()
	e.docs.fail = errors.New("offline")
	e.docs.mu.Unlock()

	resp, body := e.do(t, http.MethodPost, "/v1/courses", tok, map[string]string{"prompt": "chess"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, session.SyncFailedMessage, body["sync"].(map[string]any)["message"])

	resp, body = e.do(t, http.MethodPost, "/v1/sync", tok, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, session.SyncFailedMessage, body["message"])

	e.docs.mu.Lock()
	e.docs.fail = nil
	e.docs.mu.Unlock()

	resp, body = e.do(t, http.MethodPost, "/v1/sync", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["message"])

	resp, body = e.do(t, http.MethodGet, "/v1/sync", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["localOnly"])
	assert.NotNil(t, body["lastSyncedAt"])
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})
	a, b := e.token(t, "a"), e.token(t, "b")

	createCourse(t, e, a, "chess", "")

	_, body := e.do(t, http.MethodGet, "/v1/courses", b, nil)
	assert.Empty(t, body["courses"])
	_, body = e.do(t, http.MethodGet, "/v1/courses", a, nil)
	assert.Len(t, body["courses"], 1)
	assert.Equal(t, 2, e.srv.sessions.len())
}

func TestSessionRestoredFromStore(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{})
	tok := e.token(t, "u1")
	crs := createCourse(t, e, tok, "chess", "")

	// A fresh server over the same store sees the saved course.
	srv, err := New(config.Default().Server, config.RateLimitConfig{}, Deps{Auth: e.auth, Documents: e.docs})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/courses/"+crs.ID, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerationRateLimited(t *testing.T) {
	e := newEnv(t, config.RateLimitConfig{PerMinute: 1, Burst: 2})
	a, b := e.token(t, "a"), e.token(t, "b")

	createCourse(t, e, a, "chess", "")
	createCourse(t, e, a, "go", "")
	resp, _ := e.do(t, http.MethodPost, "/v1/courses", a, map[string]string{"prompt": "rust"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Other users and non-generation routes are unaffected.
	createCourse(t, e, b, "chess", "")
	resp, _ = e.do(t, http.MethodGet, "/v1/courses", a, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserLimiter(t *testing.T) {
	assert.Nil(t, newUserLimiter(0, 5))
	var nilLimiter *userLimiter
	assert.True(t, nilLimiter.allow("x"))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newUserLimiter(60, 1)
	l.now = func() time.Time { return now }
	assert.True(t, l.allow("u"))
	assert.False(t, l.allow("u"))
	now = now.Add(time.Second)
	assert.True(t, l.allow("u"))

	now = now.Add(time.Hour)
	assert.True(t, l.allow("v"))
	l.mu.Lock()
	_, kept := l.visitors["u"]
	l.mu.Unlock()
	assert.False(t, kept, "idle visitors are swept")
}

func TestRegistryRetriesFailedLoad(t *testing.T) {
	calls := 0
	r := newRegistry(func(ctx context.Context, u *auth.User) (*session.Controller, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("store down")
		}
		return session.New(session.Options{User: u}), nil
	})
	u := &auth.User{ID: "u1"}

	_, err := r.get(context.Background(), u)
	assert.Error(t, err)
	assert.Equal(t, 0, r.len())

	c1, err := r.get(context.Background(), u)
	require.NoError(t, err)
	c2, err := r.get(context.Background(), u)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, 2, calls)

	r.closeAll()
	assert.Equal(t, 0, r.len())
	_, err = c1.GenerateCourse(context.Background(), "chess", "")
	assert.ErrorIs(t, err, session.ErrClosed)
}

func TestRegistryCloseAllWaitsForPendingLoad(t *testing.T) {
	release := make(chan struct{})
	r := newRegistry(func(ctx context.Context, u *auth.User) (*session.Controller, error) {
		<-release
		return session.New(session.Options{User: u}), nil
	})
	u := &auth.User{ID: "u1"}

	loaded := make(chan *session.Controller, 1)
	go func() {
		c, err := r.get(context.Background(), u)
		assert.NoError(t, err)
		loaded <- c
	}()
	require.Eventually(t, func() bool { return r.len() == 1 }, time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		r.closeAll()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("closeAll returned before the load finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-closed
	c := <-loaded
	_, err := c.GenerateCourse(context.Background(), "chess", "")
	assert.ErrorIs(t, err, session.ErrClosed)

	_, err = r.get(context.Background(), u)
	assert.ErrorIs(t, err, session.ErrClosed)
	assert.Equal(t, 0, r.len())
}
