package translate

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/receitas/pkg/chunker"
)

// OutcomeKind tags how a unit was resolved.
type OutcomeKind int

const (
	// Translated means the backend returned a translation.
	Translated OutcomeKind = iota
	// Fallback means the backend call failed and the source text was kept.
	Fallback
	// Skipped means the unit was too long to send and was kept verbatim.
	Skipped
)

func (k OutcomeKind) String() string {
	switch k {
	case Translated:
		return "translated"
	case Fallback:
		return "fallback"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the result of translating one unit.
type Outcome struct {
	Unit chunker.Unit
	Kind OutcomeKind
	// Text is the translation, or Unit.Source for Fallback and Skipped.
	Text string
	// Err is the backend error behind a Fallback.
	Err error
}

// Result is the ordered outcome of one chunked translation.
type Result struct {
	// Whole is set when the text was short enough for a single call and
	// Outcomes then holds exactly one entry.
	Whole    bool
	Outcomes []Outcome
}

// String reassembles the translated text.
func (r Result) String() string {
	if r.Whole {
		if len(r.Outcomes) == 0 {
			return ""
		}
		return r.Outcomes[0].Text
	}
	parts := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		parts[i] = o.Text
	}
	return chunker.Join(parts)
}

// Count returns how many outcomes are of kind k.
func (r Result) Count(k OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == k {
			n++
		}
	}
	return n
}

// ProgressFunc is called after each unit resolves.
type ProgressFunc func(done, total int)

// ChunkedOptions configures a ChunkedTranslator.
type ChunkedOptions struct {
	// MaxQueryLength is the backend's per-call limit. Texts and units whose
	// length reaches it are split or skipped.
	MaxQueryLength int
	// Concurrency is the number of backend calls in flight. 1 (the default)
	// keeps calls strictly sequential, which is what public rate-limited APIs expect.
	Concurrency int
	// Engine labels metrics.
	Engine string
	Logger *logrus.Logger
}

// ChunkedTranslator translates text of any length through a backend that only
// accepts short queries. It never fails: units whose call fails keep their
// original text.
type ChunkedTranslator struct {
	backend        Translator
	languageMapper *LanguageMapper
	maxQueryLength int
	concurrency    int
	logger         *logrus.Logger
	metrics        *MetricsCollector
}

// NewChunkedTranslator wraps backend.
func NewChunkedTranslator(backend Translator, opts ChunkedOptions) *ChunkedTranslator {
	if opts.MaxQueryLength <= 0 {
		opts.MaxQueryLength = chunker.DefaultMaxQueryLength
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Engine == "" {
		opts.Engine = "unknown"
	}

	return &ChunkedTranslator{
		backend:        backend,
		languageMapper: NewLanguageMapper(),
		maxQueryLength: opts.MaxQueryLength,
		concurrency:    opts.Concurrency,
		logger:         opts.Logger,
		metrics:        NewMetricsCollector(opts.Engine),
	}
}

// MaxQueryLength returns the configured per-call limit.
func (t *ChunkedTranslator) MaxQueryLength() int {
	return t.maxQueryLength
}

// Translate returns the translation of text, falling back to the original
// text of every unit whose backend call fails.
func (t *ChunkedTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	return t.TranslateUnits(ctx, text, sourceLang, targetLang, nil).String()
}

// TranslateUnits is Translate with per-unit outcomes and optional progress reporting.
func (t *ChunkedTranslator) TranslateUnits(ctx context.Context, text, sourceLang, targetLang string, progress ProgressFunc) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Whole: true, Outcomes: []Outcome{{Kind: Skipped, Text: text}}}
	}

	src := t.languageMapper.Resolve(sourceLang, text, "en")
	dst := t.languageMapper.ToBackendCode(targetLang)

	if chunker.Fits(text, t.maxQueryLength) {
		unit := chunker.Unit{Source: text, Query: text, Level: chunker.LevelSentence}
		outcome := t.translateUnit(ctx, unit, src, dst)
		if progress != nil {
			progress(1, 1)
		}
		return Result{Whole: true, Outcomes: []Outcome{outcome}}
	}

	units := chunker.Segment(text, t.maxQueryLength)
	t.metrics.RecordSegmentation(len(units))
	t.logger.WithFields(logrus.Fields{
		"text_length": chunker.Len(text),
		"units":       len(units),
		"max_length":  t.maxQueryLength,
		"concurrency": t.concurrency,
	}).Debug("Split text for chunked translation")

	outcomes := t.translateAll(ctx, units, src, dst, progress)

	result := Result{Outcomes: outcomes}
	t.logger.WithFields(logrus.Fields{
		"units":      len(outcomes),
		"translated": result.Count(Translated),
		"fallback":   result.Count(Fallback),
		"skipped":    result.Count(Skipped),
	}).Info("Chunked translation completed")
	return result
}

// translateAll resolves units in index slots so output order never depends
// on completion order.
func (t *ChunkedTranslator) translateAll(ctx context.Context, units []chunker.Unit, src, dst string, progress ProgressFunc) []Outcome {
	outcomes := make([]Outcome, len(units))
	total := len(units)

	if t.concurrency <= 1 {
		for i, unit := range units {
			outcomes[i] = t.translateUnit(ctx, unit, src, dst)
			if progress != nil {
				progress(i+1, total)
			}
		}
		return outcomes
	}

	sem := make(chan struct{}, t.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for i, unit := range units {
		sem <- struct{}{}
		wg.Add(1)

		go func(i int, unit chunker.Unit) {
			defer func() {
				<-sem
				wg.Done()
			}()

			outcomes[i] = t.translateUnit(ctx, unit, src, dst)

			mu.Lock()
			done++
			if progress != nil {
				progress(done, total)
			}
			mu.Unlock()
		}(i, unit)
	}

	wg.Wait()
	return outcomes
}

func (t *ChunkedTranslator) translateUnit(ctx context.Context, unit chunker.Unit, src, dst string) Outcome {
	if unit.Oversized {
		t.metrics.RecordOutcome(Skipped)
		t.logger.WithFields(logrus.Fields{
			"length": chunker.Len(unit.Source),
		}).Warn("Unit exceeds query limit, keeping original")
		return Outcome{Unit: unit, Kind: Skipped, Text: unit.Source}
	}

	translated, err := t.backend.Translate(ctx, unit.Query, src, dst)
	if err != nil {
		t.metrics.RecordOutcome(Fallback)
		t.logger.WithError(err).WithFields(logrus.Fields{
			"level":  unit.Level.String(),
			"length": chunker.Len(unit.Query),
		}).Warn("Unit translation failed, keeping original")
		return Outcome{Unit: unit, Kind: Fallback, Text: unit.Source, Err: err}
	}

	t.metrics.RecordOutcome(Translated)
	return Outcome{Unit: unit, Kind: Translated, Text: translated}
}
