package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/hamyon/hamyon/internal/llm"
)

func newTestRecognizer(t *testing.T, handler http.HandlerFunc) (*GoogleRecognizer, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	rec, err := NewGoogleRecognizer(context.Background(), "", "uz-UZ",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	rec.retryDelay = 0
	return rec, &calls
}

func TestGoogleRecognizer_Success(t *testing.T) {
	rec, calls := newTestRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		cfg := body["config"].(map[string]any)
		assert.Equal(t, "OGG_OPUS", cfg["encoding"])
		assert.Equal(t, "uz-UZ", cfg["languageCode"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"transcript":"taksi o'n besh ming"}]},{"alternatives":[{"transcript":"so'm"}]}]}`))
	})

	text, err := rec.Recognize(context.Background(), []byte("OggS"))
	require.NoError(t, err)
	assert.Equal(t, "taksi o'n besh ming so'm", text)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestGoogleRecognizer_NoSpeech(t *testing.T) {
	rec, _ := newTestRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := rec.Recognize(context.Background(), []byte("OggS"))
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestGoogleRecognizer_RetriesOnceOnServerError(t *testing.T) {
	var n int32
	rec, calls := newTestRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			http.Error(w, `{"error":{"code":503,"message":"busy"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"transcript":"non"}]}]}`))
	})

	text, err := rec.Recognize(context.Background(), []byte("OggS"))
	require.NoError(t, err)
	assert.Equal(t, "non", text)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestGoogleRecognizer_GivesUpAfterTwoAttempts(t *testing.T) {
	rec, calls := newTestRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"down"}}`, http.StatusInternalServerError)
	})

	_, err := rec.Recognize(context.Background(), []byte("OggS"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestGoogleRecognizer_NoRetryOnBadRequest(t *testing.T) {
	rec, calls := newTestRecognizer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"bad audio"}}`, http.StatusBadRequest)
	})

	_, err := rec.Recognize(context.Background(), []byte("OggS"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

type stubRecognizer struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubRecognizer) Name() string { return s.name }

func (s *stubRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestChain(t *testing.T) {
	t.Run("falls through unavailable", func(t *testing.T) {
		first := &stubRecognizer{name: "a", err: ErrUnavailable}
		second := &stubRecognizer{name: "b", text: "ok"}
		text, err := Chain{first, second}.Recognize(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, 1, second.calls)
	})

	t.Run("stops on no speech", func(t *testing.T) {
		first := &stubRecognizer{name: "a", err: ErrNoSpeech}
		second := &stubRecognizer{name: "b", text: "ok"}
		_, err := Chain{first, second}.Recognize(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNoSpeech)
		assert.Zero(t, second.calls)
	})

	t.Run("empty chain", func(t *testing.T) {
		_, err := Chain{}.Recognize(context.Background(), nil)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("last error wins", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Chain{&stubRecognizer{name: "a", err: boom}}.Recognize(context.Background(), nil)
		assert.ErrorIs(t, err, boom)
	})
}

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, *llm.Usage, error) {
	return s.text, nil, s.err
}

func TestGeminiRecognizer(t *testing.T) {
	text, err := NewGeminiRecognizer(stubTranscriber{text: "  kitob 40 ming "}).Recognize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "kitob 40 ming", text)

	_, err = NewGeminiRecognizer(stubTranscriber{}).Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSpeech)

	_, err = NewGeminiRecognizer(stubTranscriber{err: errors.New("quota")}).Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
