package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drivesim/recorder/internal/model"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000", "secret123")

	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected baseURL=http://localhost:5000, got %s", c.baseURL)
	}
	if c.apiKey != "secret123" {
		t.Errorf("expected apiKey=secret123, got %s", c.apiKey)
	}
	if c.httpClient == nil {
		t.Error("httpClient is nil")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("expected path /healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Healthcheck(); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Healthcheck(); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestUpload_Success(t *testing.T) {
	var receivedSecret, receivedRunName, receivedSimulator, receivedTickCount string
	var receivedFileBytes int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/runs/add" {
			t.Errorf("expected path /api/v1/runs/add, got %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		receivedSecret = r.FormValue("secret")
		receivedRunName = r.FormValue("runName")
		receivedSimulator = r.FormValue("simulator")
		receivedTickCount = r.FormValue("tickCount")

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("failed to get form file: %v", err)
		}
		defer file.Close()
		buf := make([]byte, 1024)
		for {
			n, err := file.Read(buf)
			receivedFileBytes += n
			if err != nil {
				break
			}
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "run.json.gz")
	if err := os.WriteFile(path, []byte("fake export payload"), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(server.URL, "topsecret")
	err := c.Upload(path, model.UploadMetadata{
		RunName:   "morning drive",
		Simulator: "odometer",
		StartTime: time.Now(),
		TickCount: 48,
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if receivedSecret != "topsecret" {
		t.Errorf("expected secret=topsecret, got %s", receivedSecret)
	}
	if receivedRunName != "morning drive" {
		t.Errorf("expected runName=morning drive, got %s", receivedRunName)
	}
	if receivedSimulator != "odometer" {
		t.Errorf("expected simulator=odometer, got %s", receivedSimulator)
	}
	if receivedTickCount != "48" {
		t.Errorf("expected tickCount=48, got %s", receivedTickCount)
	}
	if receivedFileBytes == 0 {
		t.Error("expected file content to be uploaded")
	}
}

func TestUpload_MissingFile(t *testing.T) {
	c := New("http://localhost:5000", "")
	err := c.Upload("/nonexistent/run.json.gz", model.UploadMetadata{})
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUpload_ServerRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(server.URL, "wrong")
	if err := c.Upload(path, model.UploadMetadata{RunName: "r"}); err == nil {
		t.Error("expected error for 403 response")
	}
}
