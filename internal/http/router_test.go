package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internavi/schoolfinder/internal/database"
	"github.com/internavi/schoolfinder/internal/database/schools"
	syncrepo "github.com/internavi/schoolfinder/internal/database/sync"
	"github.com/internavi/schoolfinder/internal/entities"
	"github.com/internavi/schoolfinder/internal/tasks"
)

type testEnv struct {
	db       *database.Database
	schools  *schools.Repository
	progress *syncrepo.Repository
	queue    *fakeQueue
	router   *gin.Engine
}

type fakeQueue struct {
	mu     sync.Mutex
	tasks  []backlite.Task
	err    error
	status backlite.TaskStatus
}

func (f *fakeQueue) Enqueue(task backlite.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.tasks = append(f.tasks, task)
	return "task-42", nil
}

func (f *fakeQueue) Status(ctx context.Context, id string) (backlite.TaskStatus, error) {
	return f.status, nil
}

type fakeScheduler struct {
	mu      sync.Mutex
	runs    int
	syncing bool
	next    *time.Time
}

func (f *fakeScheduler) RunNow() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
}

func (f *fakeScheduler) IsSyncing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncing
}

func (f *fakeScheduler) GetNextRunTime() *time.Time {
	return f.next
}

// withScheduler rebuilds the router without a task queue, so ingestion
// falls back to in-process runs.
func (e *testEnv) withScheduler(s *fakeScheduler) {
	e.router = NewRouter(RouterConfig{
		Database:  e.db,
		Schools:   e.schools,
		Progress:  e.progress,
		Scheduler: s,
		Logger:    quietLogger(),
	})
}

func setupRouter(t *testing.T, withQueue bool) (*testEnv, func()) {
	t.Helper()

	dbPath := "./test_router_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath, quietLogger())
	require.NoError(t, err)

	env := &testEnv{
		db:       db,
		schools:  schools.NewRepository(db.DB),
		progress: syncrepo.NewRepository(db.DB),
		queue:    &fakeQueue{status: backlite.TaskStatusPending},
	}

	cfg := RouterConfig{
		Database: db,
		Schools:  env.schools,
		Progress: env.progress,
		Logger:   quietLogger(),
		Version:  "test",
	}
	if withQueue {
		cfg.TaskQueue = env.queue
	}
	env.router = NewRouter(cfg)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return env, cleanup
}

func ptr[T any](v T) *T {
	return &v
}

func (e *testEnv) seed(t *testing.T, list ...*entities.School) {
	t.Helper()
	n, err := e.schools.CreateBatch(list)
	require.NoError(t, err)
	require.Equal(t, len(list), n)
}

func (e *testEnv) do(method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sampleSchools() []*entities.School {
	return []*entities.School{
		{
			UnitID:             ptr("100"),
			Name:               "Alpha State University",
			State:              ptr("CA"),
			Locale:             ptr("City"),
			SchoolType:         ptr("Public"),
			DegreeType:         ptr("4"),
			AdmissionRate:      ptr(0.4),
			TuitionInState:     ptr(12000.0),
			CompletionRate:     ptr(0.8),
			EarningsAfter10Yrs: ptr(60000.0),
		},
		{
			UnitID:         ptr("200"),
			Name:           "Beta College",
			State:          ptr("NY"),
			Locale:         ptr("Suburban"),
			SchoolType:     ptr("Private nonprofit"),
			DegreeType:     ptr("4"),
			AdmissionRate:  ptr(0.2),
			TuitionInState: ptr(52000.0),
		},
		{
			UnitID:         ptr("300"),
			Name:           "Gamma Community College",
			State:          ptr("CA"),
			Locale:         ptr("Town"),
			SchoolType:     ptr("Public"),
			DegreeType:     ptr("2"),
			AdmissionRate:  ptr(1.0),
			TuitionInState: ptr(1500.0),
		},
	}
}

func TestListSchools(t *testing.T) {
	env, cleanup := setupRouter(t, false)
	defer cleanup()
	env.seed(t, sampleSchools()...)

	t.Run("defaults", func(t *testing.T) {
		w := env.do("GET", "/api/schools", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp schools.ListResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(3), resp.Total)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, schools.DefaultPageSize, resp.PageSize)
		assert.Equal(t, 1, resp.TotalPages)
		require.Len(t, resp.Schools, 3)
		assert.Equal(t, "Alpha State University", resp.Schools[0].Name)
	})

	t.Run("filters and sorts", func(t *testing.T) {
		w := env.do("GET", "/api/schools?state=ca&sort_by=tuition_in_state&sort_order=DESC", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp schools.ListResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(2), resp.Total)
		require.Len(t, resp.Schools, 2)
		assert.Equal(t, "Alpha State University", resp.Schools[0].Name)
		assert.Equal(t, "Gamma Community College", resp.Schools[1].Name)
	})

	t.Run("tuition range", func(t *testing.T) {
		w := env.do("GET", "/api/schools?min_tuition=1500&max_tuition=12000", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp schools.ListResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(2), resp.Total)
	})

	t.Run("paging", func(t *testing.T) {
		w := env.do("GET", "/api/schools?page=2&page_size=2", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp schools.ListResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.TotalPages)
		require.Len(t, resp.Schools, 1)
		assert.Equal(t, "Gamma Community College", resp.Schools[0].Name)
	})

	t.Run("page beyond the end is empty", func(t *testing.T) {
		w := env.do("GET", "/api/schools?page=9", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp schools.ListResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(3), resp.Total)
		assert.Empty(t, resp.Schools)
	})

	t.Run("unknown sort falls back to name", func(t *testing.T) {
		w := env.do("GET", "/api/schools?sort_by=nonsense", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp schools.ListResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Alpha State University", resp.Schools[0].Name)
	})
}

func TestListSchools_BadRequests(t *testing.T) {
	env, cleanup := setupRouter(t, false)
	defer cleanup()

	for _, query := range []string{
		"page=0",
		"page=abc",
		"page=1000001",
		"page=92233720368547760",
		"page_size=0",
		"page_size=101",
		"page_size=x",
		"min_tuition=cheap",
		"max_tuition=NaN",
	} {
		t.Run(query, func(t *testing.T) {
			w := env.do("GET", "/api/schools?"+query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

const quizBody = `{
	"study_level": "undergraduate",
	"preferred_location": "CA",
	"budget_range": "low",
	"program_interest": "engineering",
	"admission_preference": "selective"
}`

func TestQuizMatch(t *testing.T) {
	env, cleanup := setupRouter(t, false)
	defer cleanup()
	env.seed(t, sampleSchools()...)

	w := env.do("POST", "/api/quiz-match", quizBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp QuizMatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Matches, 3)
	require.Len(t, resp.Schools, 3)

	top := resp.Matches[0]
	assert.Equal(t, resp.Schools[0].ID, top.SchoolID)
	assert.Equal(t, "Alpha State University", resp.Schools[0].Name)
	assert.Equal(t, 100, top.MatchScore)
	assert.Contains(t, top.MatchReasons, "Located in CA")
	assert.Contains(t, top.MatchReasons, "Tuition: $12,000")

	assert.Equal(t, "Gamma Community College", resp.Schools[1].Name)
	assert.Equal(t, 55, resp.Matches[1].MatchScore)
	assert.Equal(t, "Beta College", resp.Schools[2].Name)
	assert.Equal(t, 40, resp.Matches[2].MatchScore)

	for i := 1; i < len(resp.Matches); i++ {
		assert.GreaterOrEqual(t, resp.Matches[i-1].MatchScore, resp.Matches[i].MatchScore)
		assert.Equal(t, resp.Schools[i].ID, resp.Matches[i].SchoolID)
	}
}

func TestQuizMatch_EmptyStore(t *testing.T) {
	env, cleanup := setupRouter(t, false)
	defer cleanup()

	w := env.do("POST", "/api/quiz-match", quizBody)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "No schools found in database", resp.Error)
}

func TestQuizMatch_NothingMatches(t *testing.T) {
	env, cleanup := setupRouter(t, false)
	defer cleanup()
	env.seed(t, &entities.School{UnitID: ptr("1"), Name: "Bare Institute"})

	body := `{
		"study_level": "doctorate",
		"preferred_location": "any",
		"budget_range": "low",
		"program_interest": "any",
		"admission_preference": "selective"
	}`
	w := env.do("POST", "/api/quiz-match", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "No schools matched your criteria. Try adjusting your preferences.", resp.Error)
}

func TestQuizMatch_Validation(t *testing.T) {
	env, cleanup := setupRouter(t, false)
	defer cleanup()

	w := env.do("POST", "/api/quiz-match", `{"study_level": "graduate"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Code    string       `json:"code"`
		Details []FieldError `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, CodeValidation, resp.Code)

	fields := make([]string, 0, len(resp.Details))
	for _, d := range resp.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{
		"preferred_location", "budget_range", "program_interest", "admission_preference",
	}, fields)
}

func TestIngestTrigger(t *testing.T) {
	t.Run("enqueues a task", func(t *testing.T) {
		env, cleanup := setupRouter(t, true)
		defer cleanup()

		req := httptest.NewRequest("POST", "/api/ingest", nil)
		req.Header.Set(RequestIDHeader, "req-7")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, w.Body.String(), "task-42")

		require.Len(t, env.queue.tasks, 1)
		task, ok := env.queue.tasks[0].(tasks.IngestSchoolsTask)
		require.True(t, ok)
		assert.Equal(t, tasks.TriggerAPI, task.Trigger)
		assert.Equal(t, "req-7", task.RequestID)
	})

	t.Run("no queue and no scheduler", func(t *testing.T) {
		env, cleanup := setupRouter(t, false)
		defer cleanup()

		w := env.do("POST", "/api/ingest", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("runs in-process without a queue", func(t *testing.T) {
		env, cleanup := setupRouter(t, false)
		defer cleanup()
		sched := &fakeScheduler{}
		env.withScheduler(sched)

		w := env.do("POST", "/api/ingest", "")
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.NotContains(t, w.Body.String(), "task_id")
		assert.Equal(t, 1, sched.runs)
	})

	t.Run("refuses while the scheduler is syncing", func(t *testing.T) {
		env, cleanup := setupRouter(t, false)
		defer cleanup()
		sched := &fakeScheduler{syncing: true}
		env.withScheduler(sched)

		w := env.do("POST", "/api/ingest", "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Zero(t, sched.runs)
	})

	t.Run("refuses while a run is in progress", func(t *testing.T) {
		env, cleanup := setupRouter(t, true)
		defer cleanup()
		require.NoError(t, env.progress.StartSync(0))

		w := env.do("POST", "/api/ingest", "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Empty(t, env.queue.tasks)
	})

	t.Run("enqueue failure", func(t *testing.T) {
		env, cleanup := setupRouter(t, true)
		defer cleanup()
		env.queue.err = errors.New("queue closed")

		w := env.do("POST", "/api/ingest", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "queue closed")
	})
}

func TestIngestStatus(t *testing.T) {
	env, cleanup := setupRouter(t, true)
	defer cleanup()

	w := env.do("GET", "/api/ingest/status", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, env.progress.StartSync(0))
	require.NoError(t, env.progress.UpdateProgress(10, 7, 1, 2, "page 0"))

	w = env.do("GET", "/api/ingest/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp IngestStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Running)
	assert.Equal(t, 10, resp.Processed)
	assert.Equal(t, 7, resp.Inserted)
	assert.Equal(t, 2, resp.Skipped)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "page 0", resp.CurrentItem)

	require.NoError(t, env.progress.CompleteSync(false, "fetch page 3: boom"))

	w = env.do("GET", "/api/ingest/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Running)
	assert.Equal(t, string(entities.SyncStatusFailed), resp.Status)
	assert.Equal(t, "fetch page 3: boom", resp.Error)
	assert.NotNil(t, resp.CompletedAt)
}

func TestIngestStatus_ReportsSchedule(t *testing.T) {
	env, cleanup := setupRouter(t, false)
	defer cleanup()

	next := time.Date(2030, 1, 6, 3, 0, 0, 0, time.UTC)
	env.withScheduler(&fakeScheduler{syncing: true, next: &next})
	require.NoError(t, env.progress.StartSync(0))

	w := env.do("GET", "/api/ingest/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp IngestStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsSyncing)
	require.NotNil(t, resp.NextRun)
	assert.True(t, next.Equal(*resp.NextRun))
}

func TestTaskStatus(t *testing.T) {
	env, cleanup := setupRouter(t, true)
	defer cleanup()

	w := env.do("GET", "/api/tasks/task-42", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)

	env.queue.status = backlite.TaskStatusNotFound
	w = env.do("GET", "/api/tasks/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	dbPath := "./test_router_metrics.db"
	db, err := database.NewDatabase(dbPath, quietLogger())
	require.NoError(t, err)
	defer func() {
		db.Close()
		os.Remove(dbPath)
	}()

	router := NewRouter(RouterConfig{
		Database:       db,
		Schools:        schools.NewRepository(db.DB),
		Progress:       syncrepo.NewRepository(db.DB),
		Logger:         quietLogger(),
		MetricsEnabled: true,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "schoolfinder_http_requests_total")
}
