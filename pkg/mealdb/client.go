// Package mealdb is a client for the public TheMealDB recipe API.
package mealdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the free v1 API with the public test key.
	DefaultBaseURL = "https://www.themealdb.com/api/json/v1/1"
	// DefaultTimeout is the default timeout for HTTP requests.
	DefaultTimeout = 15 * time.Second

	maxIngredients = 20
)

// ErrNotFound is returned when a lookup matches no meal.
var ErrNotFound = errors.New("meal not found")

var mealdbRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "receitas_mealdb_requests_total",
		Help: "Total number of TheMealDB requests",
	},
	[]string{"endpoint", "status"},
)

// Ingredient is one ingredient line of a meal.
type Ingredient struct {
	Name    string `json:"name"`
	Measure string `json:"measure,omitempty"`
}

// Meal is a recipe as returned by TheMealDB.
type Meal struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Category     string       `json:"category"`
	Area         string       `json:"area"`
	Instructions string       `json:"instructions"`
	Thumbnail    string       `json:"thumbnail"`
	Tags         string       `json:"tags,omitempty"`
	YouTube      string       `json:"youtube,omitempty"`
	Ingredients  []Ingredient `json:"ingredients"`
}

// Client talks to TheMealDB.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new TheMealDB client.
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Search returns the meals whose name matches query. No match is an empty
// slice, not an error.
func (c *Client) Search(ctx context.Context, query string) ([]Meal, error) {
	body, err := c.get(ctx, "search.php", url.Values{"s": {query}})
	if err != nil {
		return nil, err
	}
	return parseMeals(body)
}

// Lookup returns the meal with the given id.
func (c *Client) Lookup(ctx context.Context, id string) (*Meal, error) {
	body, err := c.get(ctx, "lookup.php", url.Values{"i": {id}})
	if err != nil {
		return nil, err
	}
	meals, err := parseMeals(body)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, fmt.Errorf("lookup %s: %w", id, ErrNotFound)
	}
	return &meals[0], nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.baseURL + "/" + endpoint + "?" + params.Encode()

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"params":   params.Encode(),
	}).Debug("Querying TheMealDB")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		mealdbRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		c.logger.WithError(err).WithFields(logrus.Fields{
			"endpoint": endpoint,
		}).Error("TheMealDB request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		mealdbRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		mealdbRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		c.logger.WithFields(logrus.Fields{
			"endpoint":    endpoint,
			"status_code": resp.StatusCode,
		}).Error("TheMealDB returned non-OK status")
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	mealdbRequestsTotal.WithLabelValues(endpoint, "success").Inc()
	return body, nil
}

// parseMeals reads the "meals" array. TheMealDB returns null instead of an
// empty array when nothing matches.
func parseMeals(body []byte) ([]Meal, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode response: invalid JSON")
	}

	list := gjson.GetBytes(body, "meals")
	if !list.Exists() || list.Type == gjson.Null {
		return []Meal{}, nil
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("decode response: meals is not an array")
	}

	var meals []Meal
	list.ForEach(func(_, m gjson.Result) bool {
		meals = append(meals, parseMeal(m))
		return true
	})
	if meals == nil {
		meals = []Meal{}
	}
	return meals, nil
}

func parseMeal(m gjson.Result) Meal {
	meal := Meal{
		ID:           m.Get("idMeal").String(),
		Name:         m.Get("strMeal").String(),
		Category:     m.Get("strCategory").String(),
		Area:         m.Get("strArea").String(),
		Instructions: m.Get("strInstructions").String(),
		Thumbnail:    m.Get("strMealThumb").String(),
		Tags:         m.Get("strTags").String(),
		YouTube:      m.Get("strYoutube").String(),
	}

	for i := 1; i <= maxIngredients; i++ {
		name := strings.TrimSpace(m.Get(fmt.Sprintf("strIngredient%d", i)).String())
		if name == "" {
			continue
		}
		meal.Ingredients = append(meal.Ingredients, Ingredient{
			Name:    name,
			Measure: strings.TrimSpace(m.Get(fmt.Sprintf("strMeasure%d", i)).String()),
		})
	}
	return meal
}
