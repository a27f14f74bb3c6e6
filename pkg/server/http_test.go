package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dasmlab/receitas/pkg/mealdb"
	"github.com/dasmlab/receitas/pkg/service"
	"github.com/dasmlab/receitas/pkg/translate"
)

// shouting "translates" by upper-casing.
type shouting struct{}

func (shouting) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return strings.ToUpper(text), nil
}

func (shouting) CheckHealth(ctx context.Context) error { return nil }

func (shouting) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"pt", "en"}, nil
}

type fakeMeals struct {
	meals     []mealdb.Meal
	searchErr error
}

func (f *fakeMeals) Search(ctx context.Context, query string) ([]mealdb.Meal, error) {
	return f.meals, f.searchErr
}

func (f *fakeMeals) Lookup(ctx context.Context, id string) (*mealdb.Meal, error) {
	for i := range f.meals {
		if f.meals[i].ID == id {
			return &f.meals[i], nil
		}
	}
	return nil, mealdb.ErrNotFound
}

var soup = mealdb.Meal{
	ID:           "100",
	Name:         "Soup",
	Category:     "Starter",
	Area:         "French",
	Instructions: "Boil water. Add salt",
	Ingredients:  []mealdb.Ingredient{{Name: "Water", Measure: "1l"}},
}

type fixture struct {
	server *HTTPServer
	queue  *service.JobQueue
	meals  *fakeMeals
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	meals := &fakeMeals{meals: []mealdb.Meal{soup}}
	ct := translate.NewChunkedTranslator(shouting{}, translate.ChunkedOptions{Logger: logger})
	recipes := service.NewRecipeService(meals, ct, 5, logger)
	queue := service.NewJobQueue(logger)

	srv := NewHTTPServer(recipes, ct, queue, logger, 0)
	srv.SetSSEInterval(10 * time.Millisecond)
	return &fixture{server: srv, queue: queue, meals: meals}
}

func (f *fixture) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/recipes?q=sopa", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Recipes []service.RecipeSummary `json:"recipes"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Recipes, 1)
	assert.Equal(t, "SOUP", body.Recipes[0].Name)
	assert.Equal(t, "Soup", body.Recipes[0].OriginalName)
}

func TestSearch_Errors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/recipes?q=%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.meals.searchErr = errors.New("connection refused")
	rec = f.do(t, http.MethodGet, "/api/v1/recipes?q=sopa", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestRecipeDetail(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/recipes/100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail service.RecipeDetail
	decode(t, rec, &detail)
	assert.Equal(t, "SOUP", detail.Name)
	assert.Equal(t, "BOIL WATER. ADD SALT", detail.Instructions)

	rec = f.do(t, http.MethodGet, "/api/v1/recipes/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecipeSheet(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/recipes/100/sheet.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receita-100.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = f.do(t, http.MethodGet, "/api/v1/recipes/999/sheet.xlsx", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTranslate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/translate", `{"text":"bom dia","source":"pt","target":"en"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TranslatedText string `json:"translated_text"`
		Units          int    `json:"units"`
		Fallbacks      int    `json:"fallbacks"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "BOM DIA", body.TranslatedText)
	assert.Equal(t, 1, body.Units)
	assert.Zero(t, body.Fallbacks)

	rec = f.do(t, http.MethodPost, "/api/v1/translate", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/translate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestJobs_CreateAndStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/jobs", `{"meal_id":"100"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created map[string]string
	decode(t, rec, &created)
	jobID := created["job_id"]
	require.NotEmpty(t, jobID)

	rec = f.do(t, http.MethodGet, "/api/v1/jobs/"+jobID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap service.JobSnapshot
	decode(t, rec, &snap)
	assert.Equal(t, jobID, snap.ID)
	assert.Equal(t, "100", snap.MealID)
	assert.Equal(t, service.JobStatusQueued, snap.Status)

	rec = f.do(t, http.MethodGet, "/api/v1/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/jobs", `{"meal_id":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobEvents_StreamsUntilDone(t *testing.T) {
	f := newFixture(t)

	job, err := f.queue.CreateJob("100")
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		job.UpdateStatus(service.JobStatusProcessing, "Traduzindo")
		job.UpdateProgress(50, "Traduzindo")
		time.Sleep(30 * time.Millisecond)
		job.SetResult(&service.RecipeDetail{ID: "100", Name: "SOPA"})
	}()

	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/jobs/" + job.ID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []service.JobSnapshot
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap service.JobSnapshot
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
		events = append(events, snap)
	}

	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, service.JobStatusQueued, events[0].Status)
	last := events[len(events)-1]
	assert.Equal(t, service.JobStatusCompleted, last.Status)
	assert.Equal(t, int32(100), last.ProgressPercent)
	require.NotNil(t, last.Result)
	assert.Equal(t, "SOPA", last.Result.Name)
}

func TestJobEvents_FinishedJobSendsOneEvent(t *testing.T) {
	f := newFixture(t)

	job, err := f.queue.CreateJob("100")
	require.NoError(t, err)
	job.SetError(errors.New("lookup failed"))

	rec := f.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID+"/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "event: status"))
	assert.Contains(t, rec.Body.String(), "lookup failed")
}

func TestStartShutdown(t *testing.T) {
	f := newFixture(t)

	errCh := make(chan error, 1)
	go func() { errCh <- f.server.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.server.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.server.Shutdown(context.Background()))
	assert.ErrorIs(t, f.server.Start(), http.ErrServerClosed)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	f.do(t, http.MethodPost, "/api/v1/translate", `{"text":"olá","target":"en"}`)
	rec = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "receitas_translation_units_total")
}
