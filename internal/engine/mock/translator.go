package mock

import (
	"context"
	"fmt"
	"sync"
)

// Translator implements engine.Translator by wrapping the source text with
// the target language tag, or replaying scripted responses.
type Translator struct {
	mu     sync.Mutex
	script map[string]string
	errs   map[string]error
	calls  []TranslateCall
}

// TranslateCall records the input of one Translate invocation.
type TranslateCall struct {
	Text       string
	SourceLang string
	TargetLang string
}

// NewTranslator creates an empty mock translator.
func NewTranslator() *Translator {
	return &Translator{
		script: make(map[string]string),
		errs:   make(map[string]error),
	}
}

// Stub registers a fixed translation for (text, targetLang).
func (t *Translator) Stub(text, targetLang, translated string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.script[text+"\x00"+targetLang] = translated
}

// Fail makes translations of (text, targetLang) return err.
func (t *Translator) Fail(text, targetLang string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs[text+"\x00"+targetLang] = err
}

// Calls returns a snapshot of the recorded invocations.
func (t *Translator) Calls() []TranslateCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TranslateCall, len(t.calls))
	copy(out, t.calls)
	return out
}

func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, TranslateCall{Text: text, SourceLang: sourceLang, TargetLang: targetLang})

	key := text + "\x00" + targetLang
	if err, ok := t.errs[key]; ok {
		return "", err
	}
	if translated, ok := t.script[key]; ok {
		return translated, nil
	}
	return fmt.Sprintf("[%s] %s", targetLang, text), nil
}

func (t *Translator) Close() error {
	return nil
}
