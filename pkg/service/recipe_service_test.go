package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dasmlab/receitas/pkg/mealdb"
	"github.com/dasmlab/receitas/pkg/translate"
)

// dictionary translates known phrases and fails on everything else.
type dictionary map[string]string

func (d dictionary) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if out, ok := d[text]; ok {
		return out, nil
	}
	return "", errors.New("no translation")
}

func (d dictionary) CheckHealth(ctx context.Context) error { return nil }

func (d dictionary) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"pt", "en"}, nil
}

type fakeMeals struct {
	meals     []mealdb.Meal
	searchErr error
	gotQuery  string
}

func (f *fakeMeals) Search(ctx context.Context, query string) ([]mealdb.Meal, error) {
	f.gotQuery = query
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

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(meals MealSource, dict dictionary, maxLen int) *RecipeService {
	ct := translate.NewChunkedTranslator(dict, translate.ChunkedOptions{
		MaxQueryLength: maxLen,
		Logger:         quietLogger(),
	})
	return NewRecipeService(meals, ct, 2, quietLogger())
}

var pancakes = mealdb.Meal{
	ID:           "52854",
	Name:         "Pancakes",
	Category:     "Dessert",
	Area:         "American",
	Instructions: "Whisk the flour.\r\nFry the batter. Serve warm",
	Tags:         "Sweet",
	Ingredients: []mealdb.Ingredient{
		{Name: "Flour", Measure: "100g"},
		{Name: "Eggs", Measure: "2"},
		{Name: "Salt"},
	},
}

func TestRecipeService_Search(t *testing.T) {
	meals := &fakeMeals{meals: []mealdb.Meal{
		{ID: "1", Name: "Pancakes", Category: "Dessert", Area: "American"},
		{ID: "2", Name: "Banana Pancakes", Category: "Dessert", Area: "Unknown"},
		{ID: "3", Name: "Third", Category: "Dessert", Area: "British"},
	}}
	dict := dictionary{
		"panquecas": "pancakes",
		"Pancakes":  "Panquecas",
		"Dessert":   "Sobremesa",
		"American":  "Americana",
	}
	svc := newTestService(meals, dict, 300)

	got, err := svc.Search(context.Background(), "  panquecas ")
	require.NoError(t, err)

	assert.Equal(t, "pancakes", meals.gotQuery)
	require.Len(t, got, 2, "capped at max results")
	assert.Equal(t, RecipeSummary{ID: "1", Name: "Panquecas", OriginalName: "Pancakes", Category: "Sobremesa", Area: "Americana"}, got[0])
	assert.Equal(t, "Banana Pancakes", got[1].Name, "untranslatable name falls back to English")
	assert.Equal(t, "Unknown", got[1].Area)
}

func TestRecipeService_SearchQueryFallback(t *testing.T) {
	meals := &fakeMeals{}
	svc := newTestService(meals, dictionary{}, 300)

	got, err := svc.Search(context.Background(), "pizza")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "pizza", meals.gotQuery, "query is sent untranslated when translation fails")
}

func TestRecipeService_SearchErrors(t *testing.T) {
	svc := newTestService(&fakeMeals{}, dictionary{}, 300)
	_, err := svc.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	boom := errors.New("db down")
	svc = newTestService(&fakeMeals{searchErr: boom}, dictionary{}, 300)
	_, err = svc.Search(context.Background(), "bolo")
	assert.ErrorIs(t, err, boom)
}

func TestRecipeService_Detail(t *testing.T) {
	dict := dictionary{
		"Pancakes":                          "Panquecas",
		"Dessert":                           "Sobremesa",
		"American":                          "Americana",
		"Whisk the flour.\r\nFry the batter.": "Bata a farinha.\r\nFrite a massa.",
		"Flour":                             "Farinha",
		"100g":                              "100g",
		"Eggs":                              "Ovos",
		"Salt":                              "Sal",
	}
	svc := newTestService(&fakeMeals{meals: []mealdb.Meal{pancakes}}, dict, 40)

	var percents []int32
	detail, err := svc.DetailWithProgress(context.Background(), "52854", func(p int32, _ string) {
		percents = append(percents, p)
	})
	require.NoError(t, err)

	assert.Equal(t, "Panquecas", detail.Name)
	assert.Equal(t, "Pancakes", detail.OriginalName)
	assert.Equal(t, "Sobremesa", detail.Category)
	assert.Equal(t, "Americana", detail.Area)
	assert.Equal(t, "Sweet", detail.Tags)
	assert.Equal(t, "Bata a farinha.\r\nFrite a massa.. Serve warm", detail.Instructions)
	assert.Equal(t, []string{"Bata a farinha.", "Frite a massa.. Serve warm"}, detail.InstructionSteps)
	assert.Equal(t, 1, detail.UntranslatedUnits)
	assert.Equal(t, []string{"100g Farinha", "2 Ovos", "Sal"}, detail.Ingredients)

	require.NotEmpty(t, percents)
	assert.Equal(t, int32(100), percents[len(percents)-1])
}

func TestRecipeService_DetailNotFound(t *testing.T) {
	svc := newTestService(&fakeMeals{}, dictionary{}, 300)

	_, err := svc.Detail(context.Background(), "404")
	assert.ErrorIs(t, err, mealdb.ErrNotFound)

	_, err = svc.Detail(context.Background(), " ")
	assert.ErrorIs(t, err, mealdb.ErrNotFound)
}

func TestSplitSteps(t *testing.T) {
	got := SplitSteps("Step one.\r\n\r\n  Step two.\rStep three.\n ")
	assert.Equal(t, []string{"Step one.", "Step two.", "Step three."}, got)
	assert.Empty(t, SplitSteps(""))
}

func TestJobQueue_Lifecycle(t *testing.T) {
	dict := dictionary{"Pancakes": "Panquecas"}
	svc := newTestService(&fakeMeals{meals: []mealdb.Meal{pancakes}}, dict, 300)

	queue := NewJobQueue(quietLogger())
	queue.SetProcessor(NewJobProcessor(svc, quietLogger()))

	job, err := queue.CreateJob("52854")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, _, _ := job.GetStatus()
		return status.Done()
	}, 2*time.Second, 10*time.Millisecond)

	snap := job.Snapshot()
	assert.Equal(t, JobStatusCompleted, snap.Status)
	assert.Equal(t, int32(100), snap.ProgressPercent)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Panquecas", snap.Result.Name)
	assert.NotNil(t, snap.StartedAt)

	got, err := queue.GetJob(job.ID)
	require.NoError(t, err)
	assert.Same(t, job, got)
}

func TestJobQueue_FailedJob(t *testing.T) {
	svc := newTestService(&fakeMeals{}, dictionary{}, 300)
	queue := NewJobQueue(quietLogger())
	queue.SetProcessor(NewJobProcessor(svc, quietLogger()))

	job, err := queue.CreateJob("missing")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, _, _ := job.GetStatus()
		return status.Done()
	}, 2*time.Second, 10*time.Millisecond)

	snap := job.Snapshot()
	assert.Equal(t, JobStatusFailed, snap.Status)
	assert.True(t, strings.Contains(snap.Error, "meal not found"))
}

func TestJobQueue_NotFoundAndCleanup(t *testing.T) {
	queue := NewJobQueue(quietLogger())

	_, err := queue.GetJob("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = queue.CreateJob("")
	assert.Error(t, err)

	done, err := queue.CreateJob("1")
	require.NoError(t, err)
	pending, err := queue.CreateJob("2")
	require.NoError(t, err)

	done.SetResult(&RecipeDetail{ID: "1"})
	old := time.Now().Add(-time.Hour)
	done.CompletedAt = &old

	assert.Equal(t, 1, queue.CleanupOldJobs(time.Minute))
	assert.Equal(t, 1, queue.Len())
	_, err = queue.GetJob(pending.ID)
	assert.NoError(t, err)
}
