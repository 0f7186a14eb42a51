package detection

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if string(body) != "jpeg-bytes" || header.Filename != "frame.jpg" {
			http.Error(w, "unexpected upload", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"class_id":39,"class":"bottle","score":0.91,"box":[1,2,3,4]}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	dets, err := c.SendFrame(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("SendFrame failed: %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}
	d := dets[0]
	if d.ClassID != 39 || d.Label != "bottle" || d.Confidence != 0.91 || d.Box[3] != 4 {
		t.Errorf("unexpected detection: %+v", d)
	}
}

func TestSendFrameBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SendFrame(context.Background(), []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected bad status error, got %v", err)
	}
}
