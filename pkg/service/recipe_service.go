package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/receitas/pkg/mealdb"
	"github.com/dasmlab/receitas/pkg/translate"
)

const (
	// UserLang is the language users search and read in.
	UserLang = "pt"
	// RecipeLang is the language of TheMealDB content.
	RecipeLang = "en"

	// DefaultMaxResults caps how many search hits are translated.
	DefaultMaxResults = 8
)

// ErrEmptyQuery is returned when the search term is blank.
var ErrEmptyQuery = errors.New("search query is empty")

var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// MealSource is the recipe database.
type MealSource interface {
	Search(ctx context.Context, query string) ([]mealdb.Meal, error)
	Lookup(ctx context.Context, id string) (*mealdb.Meal, error)
}

// TextTranslator translates without failing; *translate.ChunkedTranslator implements it.
type TextTranslator interface {
	TranslateUnits(ctx context.Context, text, sourceLang, targetLang string, progress translate.ProgressFunc) translate.Result
}

// RecipeSummary is one translated search hit.
type RecipeSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	Category     string `json:"category"`
	Area         string `json:"area"`
	Thumbnail    string `json:"thumbnail"`
}

// RecipeDetail is a fully translated recipe.
type RecipeDetail struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	OriginalName     string   `json:"original_name"`
	Category         string   `json:"category"`
	Area             string   `json:"area"`
	Tags             string   `json:"tags,omitempty"`
	Thumbnail        string   `json:"thumbnail"`
	YouTube          string   `json:"youtube,omitempty"`
	Ingredients      []string `json:"ingredients"`
	Instructions     string   `json:"instructions"`
	InstructionSteps []string `json:"instruction_steps"`
	// UntranslatedUnits counts instruction units kept in English.
	UntranslatedUnits int `json:"untranslated_units"`
}

// ProgressReporter receives coarse progress while a detail is translated.
type ProgressReporter func(percent int32, message string)

// RecipeService searches TheMealDB in Portuguese and translates the results back.
type RecipeService struct {
	meals      MealSource
	translator TextTranslator
	maxResults int
	logger     *logrus.Logger
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(meals MealSource, translator TextTranslator, maxResults int, logger *logrus.Logger) *RecipeService {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RecipeService{
		meals:      meals,
		translator: translator,
		maxResults: maxResults,
		logger:     logger,
	}
}

func (s *RecipeService) toUser(ctx context.Context, text string) string {
	return s.translator.TranslateUnits(ctx, text, RecipeLang, UserLang, nil).String()
}

// Search translates a Portuguese query to English, searches TheMealDB and
// translates name, category and area of the first hits.
func (s *RecipeService) Search(ctx context.Context, query string) ([]RecipeSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	startTime := time.Now()
	englishQuery := s.translator.TranslateUnits(ctx, query, UserLang, RecipeLang, nil).String()

	s.logger.WithFields(logrus.Fields{
		"query":         query,
		"english_query": englishQuery,
	}).Info("Searching recipes")

	meals, err := s.meals.Search(ctx, englishQuery)
	if err != nil {
		return nil, fmt.Errorf("search recipes: %w", err)
	}
	if len(meals) > s.maxResults {
		meals = meals[:s.maxResults]
	}

	results := make([]RecipeSummary, 0, len(meals))
	for _, meal := range meals {
		results = append(results, RecipeSummary{
			ID:           meal.ID,
			Name:         s.toUser(ctx, meal.Name),
			OriginalName: meal.Name,
			Category:     s.toUser(ctx, meal.Category),
			Area:         s.toUser(ctx, meal.Area),
			Thumbnail:    meal.Thumbnail,
		})
	}

	s.logger.WithFields(logrus.Fields{
		"query":       query,
		"results":     len(results),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Recipe search completed")

	return results, nil
}

// Detail fetches and translates one recipe.
func (s *RecipeService) Detail(ctx context.Context, id string) (*RecipeDetail, error) {
	return s.DetailWithProgress(ctx, id, nil)
}

// DetailWithProgress is Detail with progress reporting for asynchronous jobs.
func (s *RecipeService) DetailWithProgress(ctx context.Context, id string, report ProgressReporter) (*RecipeDetail, error) {
	if report == nil {
		report = func(int32, string) {}
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("lookup recipe: %w", mealdb.ErrNotFound)
	}

	report(5, "Buscando receita...")
	meal, err := s.meals.Lookup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup recipe %s: %w", id, err)
	}

	report(10, "Traduzindo título...")
	detail := &RecipeDetail{
		ID:           meal.ID,
		Name:         s.toUser(ctx, meal.Name),
		OriginalName: meal.Name,
		Area:         s.toUser(ctx, meal.Area),
		Category:     s.toUser(ctx, meal.Category),
		Tags:         meal.Tags,
		Thumbnail:    meal.Thumbnail,
		YouTube:      meal.YouTube,
	}

	// Instructions take 20% to 70%, ingredients 70% to 100%.
	report(20, "Traduzindo instruções...")
	instructions := s.translator.TranslateUnits(ctx, meal.Instructions, RecipeLang, UserLang, func(done, total int) {
		report(20+int32(50*done/total), fmt.Sprintf("Traduzindo instruções (%d/%d)...", done, total))
	})
	detail.Instructions = instructions.String()
	detail.InstructionSteps = SplitSteps(detail.Instructions)
	detail.UntranslatedUnits = instructions.Count(translate.Fallback)
	if !instructions.Whole {
		// A whole text is only Skipped when blank.
		detail.UntranslatedUnits += instructions.Count(translate.Skipped)
	}

	detail.Ingredients = make([]string, 0, len(meal.Ingredients))
	for i, ing := range meal.Ingredients {
		report(70+int32(30*(i+1)/len(meal.Ingredients)), fmt.Sprintf("Traduzindo ingredientes (%d/%d)...", i+1, len(meal.Ingredients)))

		name := s.toUser(ctx, ing.Name)
		measure := ""
		if ing.Measure != "" {
			measure = s.toUser(ctx, ing.Measure)
		}
		detail.Ingredients = append(detail.Ingredients, strings.TrimSpace(measure+" "+name))
	}

	s.logger.WithFields(logrus.Fields{
		"meal_id":            meal.ID,
		"ingredients":        len(detail.Ingredients),
		"steps":              len(detail.InstructionSteps),
		"untranslated_units": detail.UntranslatedUnits,
	}).Info("Recipe detail translated")

	return detail, nil
}

// SplitSteps breaks instructions into non-blank trimmed lines.
func SplitSteps(instructions string) []string {
	steps := []string{}
	for _, line := range lineBreak.Split(instructions, -1) {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}
