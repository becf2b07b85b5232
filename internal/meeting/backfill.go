package meeting

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BillStark001/meetscript/internal/engine"
	"github.com/BillStark001/meetscript/internal/models"
	"github.com/BillStark001/meetscript/internal/observability/logging"
	"github.com/BillStark001/meetscript/internal/observability/metrics"
	"github.com/BillStark001/meetscript/internal/storage"
)

// TranslationBackfill scans committed records lacking a target-language
// translation and fills the slot through the translation engine. Re-running
// is idempotent: the scan predicate excludes already-filled slots.
type TranslationBackfill struct {
	store      storage.Store
	translator engine.Translator
	targets    []string
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

// NewTranslationBackfill creates a backfill worker for the configured target
// language set.
func NewTranslationBackfill(store storage.Store, translator engine.Translator, session string, targets []string) *TranslationBackfill {
	return &TranslationBackfill{
		store:      store,
		translator: translator,
		targets:    targets,
		log:        logging.WithSession("backfill", session),
		metrics:    metrics.DefaultMetrics,
	}
}

// Run performs one backfill pass over all target languages, returning the
// translations produced. Engine failures skip the record and are retried on
// the next pass; they never abort the pass.
func (t *TranslationBackfill) Run(ctx context.Context, session string) []models.TranslationResult {
	var results []models.TranslationResult
	for _, lang := range t.targets {
		if err := ctx.Err(); err != nil {
			return results
		}
		results = append(results, t.fillLanguage(ctx, session, lang)...)
	}
	t.metrics.RecordBackfill(len(results))
	return results
}

func (t *TranslationBackfill) fillLanguage(ctx context.Context, session, lang string) []models.TranslationResult {
	records, err := t.store.ListUntranslated(ctx, session, lang)
	if err != nil {
		t.log.Error().Err(err).Str("lang", lang).Msg("Untranslated scan failed")
		return nil
	}

	var results []models.TranslationResult
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return results
		}

		var translated string
		if baseLang(rec.Lang) == baseLang(lang) {
			// Regional variant of the target, e.g. en-US record for an "en"
			// slot: copy verbatim without an engine call.
			translated = rec.Text
		} else {
			start := time.Now()
			translated, err = t.translator.Translate(ctx, rec.Text, rec.Lang, lang)
			t.metrics.RecordTranslate("translator", err, time.Since(start).Seconds())
			if err != nil {
				t.log.Warn().Err(err).
					Int64("timestamp", rec.Timestamp).
					Str("lang", lang).
					Msg("Translation failed, skipping record")
				continue
			}
		}

		if err := t.store.SetTranslation(ctx, session, rec.Timestamp, lang, translated); err != nil {
			t.log.Error().Err(err).
				Int64("timestamp", rec.Timestamp).
				Str("lang", lang).
				Msg("Translation write failed")
			continue
		}
		results = append(results, models.TranslationResult{
			Start:      rec.Timestamp,
			SourceText: rec.Text,
			Lang:       lang,
			Text:       translated,
		})
	}
	return results
}

// baseLang reduces a BCP 47 tag like "en-US" to its primary subtag.
func baseLang(lang string) string {
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		return lang[:i]
	}
	return lang
}
