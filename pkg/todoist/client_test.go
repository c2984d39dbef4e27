package todoist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*httptest.Server, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, mux
}

func TestListTasks(t *testing.T) {
	srv, mux := newTestServer(t)
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Expected bearer auth header, got %q", got)
		}
		fmt.Fprint(w, `[
			{"id": "ext-1", "content": "Call client", "priority": 1, "is_completed": false},
			{"id": "ext-2", "content": "Send invoice", "priority": 4, "is_completed": true,
			 "due": {"date": "2024-03-01"}, "updated_at": "2024-02-20T10:00:00Z"}
		]`)
	})

	client := NewClient(srv.URL, "secret-token", 5*time.Second)
	tasks, err := client.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "ext-1" || tasks[0].Content != "Call client" {
		t.Errorf("Unexpected first task: %+v", tasks[0])
	}
	if !tasks[1].IsCompleted {
		t.Error("Expected second task to be completed")
	}
	if tasks[1].Due == nil || tasks[1].Due.Date != "2024-03-01" {
		t.Errorf("Unexpected due on second task: %+v", tasks[1].Due)
	}
	want := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)
	if !tasks[1].UpdatedAt.Equal(want) {
		t.Errorf("Expected UpdatedAt %v, got %v", want, tasks[1].UpdatedAt)
	}
}

func TestCreateTask(t *testing.T) {
	srv, mux := newTestServer(t)
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Expected JSON content type, got %q", got)
		}
		fmt.Fprint(w, `{"id": "ext-9", "content": "Draft proposal", "priority": 4}`)
	})

	client := NewClient(srv.URL, "secret-token", 5*time.Second)
	created, err := client.CreateTask(context.Background(), TaskParams{Content: "Draft proposal", Priority: 4})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if created.ID != "ext-9" {
		t.Errorf("Expected assigned id ext-9, got %q", created.ID)
	}
	if created.Priority != 4 {
		t.Errorf("Expected priority 4, got %d", created.Priority)
	}
}

func TestCloseTaskNoContent(t *testing.T) {
	srv, mux := newTestServer(t)
	mux.HandleFunc("/tasks/ext-3/close", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	client := NewClient(srv.URL, "secret-token", 5*time.Second)
	if err := client.CloseTask(context.Background(), "ext-3"); err != nil {
		t.Fatalf("CloseTask failed on 204: %v", err)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	srv, mux := newTestServer(t)
	mux.HandleFunc("/tasks/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "task not found", http.StatusNotFound)
	})

	client := NewClient(srv.URL, "secret-token", 5*time.Second)
	_, err := client.GetTask(context.Background(), "missing")
	if err == nil {
		t.Fatal("Expected error for missing task")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if !apiErr.IsNotFound() {
		t.Errorf("Expected NotFound, got status %d", apiErr.StatusCode)
	}
	if apiErr.Body != "task not found" {
		t.Errorf("Expected body text surfaced, got %q", apiErr.Body)
	}
}

func TestValidateToken(t *testing.T) {
	srv, mux := newTestServer(t)
	mux.HandleFunc("/projects", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `[{"id": "p1", "name": "Inbox"}]`)
	})

	good := NewClient(srv.URL, "good-token", 5*time.Second)
	if !good.ValidateToken(context.Background()) {
		t.Error("Expected valid token to pass")
	}
	bad := NewClient(srv.URL, "bad-token", 5*time.Second)
	if bad.ValidateToken(context.Background()) {
		t.Error("Expected invalid token to fail")
	}
}

func TestDueTime(t *testing.T) {
	d := &Due{Date: "2024-03-01"}
	got, err := d.DueTime()
	if err != nil {
		t.Fatalf("DueTime failed: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 1 {
		t.Errorf("Unexpected due time: %v", got)
	}

	d = &Due{Date: "2024-03-01", Datetime: "2024-03-01T09:30:00Z"}
	got, err = d.DueTime()
	if err != nil {
		t.Fatalf("DueTime with datetime failed: %v", err)
	}
	if got.Hour() != 9 || got.Minute() != 30 {
		t.Errorf("Expected datetime preferred, got %v", got)
	}
}
