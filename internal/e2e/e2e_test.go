package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"resty.dev/v3"

	"sttd/internal/device"
	"sttd/pkg/types"
)

func upload(t *testing.T, st *stack, content, language string) types.UploadResponse {
	t.Helper()
	var out types.UploadResponse
	var apiErr types.ErrorResponse
	resp, err := resty.New().R().
		SetFile("file", writeAudio(t, content)).
		SetFormData(map[string]string{"language": language}).
		SetResult(&out).
		SetError(&apiErr).
		Post(st.srv.URL + "/api/upload-audio")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("upload status=%d error=%q", resp.StatusCode(), apiErr.Error)
	}
	return out
}

func transcribeBody(up types.UploadResponse, language, size string) []byte {
	b, _ := json.Marshal(types.TranscribeRequest{
		DateFolder:    up.DateFolder,
		SessionFolder: up.SessionFolder,
		Language:      language,
		ModelSize:     size,
	})
	return b
}

func status(t *testing.T, st *stack) types.StatusResponse {
	t.Helper()
	resp, body := httpGet(t, st.srv.URL+"/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	var sr types.StatusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return sr
}

func TestE2E_UploadThenTranscribe(t *testing.T) {
	st := newStack(t, stackOptions{policy: device.PolicyCPU, weights: map[string]string{"base": "weights"}})

	up := upload(t, st, "good morning everyone", "english")
	if up.Message != "Audio file uploaded successfully" {
		t.Fatalf("upload message %q", up.Message)
	}

	resp, body := httpPostJSON(t, st.srv.URL+"/api/transcribe", transcribeBody(up, "english", "base"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transcribe status=%d body=%s", resp.StatusCode, body)
	}
	var tr types.TranscribeResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.Transcription != "good morning everyone" {
		t.Fatalf("transcription=%q", tr.Transcription)
	}
	saved, err := os.ReadFile(tr.TranscriptionPath)
	if err != nil {
		t.Fatalf("read transcription: %v", err)
	}
	if string(saved) != "good morning everyone" {
		t.Fatalf("file content=%q", saved)
	}

	sr := status(t, st)
	if len(sr.Entries) != 1 || sr.Entries[0].Model != "base" || sr.Entries[0].Device != "cpu" {
		t.Fatalf("unexpected entries: %+v", sr.Entries)
	}
	if sr.TranscriptionsTotal != 1 {
		t.Fatalf("transcriptions_total=%d", sr.TranscriptionsTotal)
	}

	resp, body = httpGet(t, st.srv.URL+"/api/transcriptions")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"model_size":"base"`) {
		t.Fatalf("history: %d %s", resp.StatusCode, body)
	}
}

func TestE2E_FallsBackToCPU(t *testing.T) {
	st := newStack(t, stackOptions{policy: device.PolicyCUDA, weights: map[string]string{"tiny": "gpu-fail"}})
	up := upload(t, st, "fallback works", "tiếng việt")

	resp, body := httpPostJSON(t, st.srv.URL+"/api/transcribe", transcribeBody(up, "tiếng việt", "tiny"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transcribe status=%d body=%s", resp.StatusCode, body)
	}
	sr := status(t, st)
	if len(sr.Entries) != 1 || sr.Entries[0].Device != "cpu" {
		t.Fatalf("entry should be keyed to cpu: %+v", sr.Entries)
	}
	if sr.SelectedDevice != "cuda" {
		t.Fatalf("selector should still prefer cuda, got %q", sr.SelectedDevice)
	}
}

func TestE2E_FrenchRejectedBeforeLoad(t *testing.T) {
	st := newStack(t, stackOptions{policy: device.PolicyCPU, weights: map[string]string{"base": "weights"}})
	up := upload(t, st, "bonjour", "english")

	resp, body := httpPostJSON(t, st.srv.URL+"/api/transcribe", transcribeBody(up, "french", "base"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, body)
	}
	if st.pool.Len() != 0 {
		t.Fatalf("no model should be loaded")
	}
}

func TestE2E_MissingWeightsIs500(t *testing.T) {
	st := newStack(t, stackOptions{policy: device.PolicyCPU})
	up := upload(t, st, "anything", "english")

	resp, body := httpPostJSON(t, st.srv.URL+"/api/transcribe", transcribeBody(up, "english", "medium"))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "ggml-medium.bin") {
		t.Fatalf("error should name the missing weights: %s", body)
	}
}

func TestE2E_MissingAudioIs404(t *testing.T) {
	st := newStack(t, stackOptions{policy: device.PolicyCPU, weights: map[string]string{"base": "weights"}})
	body := []byte(`{"date_folder":"2020-01-01","session_folder":"000000","language":"english","model_size":"base"}`)
	resp, out := httpPostJSON(t, st.srv.URL+"/api/transcribe", body)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, out)
	}
}

func TestE2E_Backpressure429(t *testing.T) {
	st := newStack(t, stackOptions{
		policy:        device.PolicyCPU,
		weights:       map[string]string{"base": "slow"},
		maxConcurrent: 1,
		maxQueue:      1,
		maxWait:       50 * time.Millisecond,
	})
	up := upload(t, st, "queued", "english")
	payload := transcribeBody(up, "english", "base")

	const n = 3
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(st.srv.URL+"/api/transcribe", "application/json", bytes.NewReader(payload))
			if err != nil {
				return
			}
			_ = resp.Body.Close()
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	var ok, busy int
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			busy++
		default:
			t.Fatalf("unexpected status %d in %v", c, codes)
		}
	}
	if ok < 1 || busy < 1 {
		t.Fatalf("expected at least one 200 and one 429, got %s", fmt.Sprint(codes))
	}
}
