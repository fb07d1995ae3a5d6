package mailgun

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ce_platform/internal/notify"
)

func testMessage() notify.Message {
	return notify.Message{
		From:    "RealEdu <no-reply@mg.example.com>",
		To:      "jane@example.com",
		Subject: "Hello",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	}
}

func TestSendPostsFormAndParsesID(t *testing.T) {
	var gotPath, gotAuth, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, pass, _ := r.BasicAuth()
		gotAuth = pass
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"<msg-1@mg.example.com>","message":"Queued. Thank you."}`))
	}))
	defer srv.Close()

	c := New("key-test", "mg.example.com", srv.URL, 5*time.Second)

	id, err := c.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "<msg-1@mg.example.com>" {
		t.Errorf("message id = %q", id)
	}
	if gotPath != "/mg.example.com/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "key-test" {
		t.Errorf("basic auth password = %q", gotAuth)
	}
	for _, field := range []string{"from=", "to=", "subject=", "html="} {
		if !strings.Contains(gotBody, field) {
			t.Errorf("form body missing %q: %s", field, gotBody)
		}
	}
}

func TestSendAttachmentUsesMultipart(t *testing.T) {
	var gotContentType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"id":"<msg-2@mg.example.com>"}`))
	}))
	defer srv.Close()

	c := New("key-test", "mg.example.com", srv.URL, 5*time.Second)

	msg := testMessage()
	msg.AttachmentName = "cert.pdf"
	msg.Attachment = []byte("%PDF-1.4 fake")

	if _, err := c.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Errorf("content type = %q", gotContentType)
	}
	if !strings.Contains(string(gotBody), `filename="cert.pdf"`) {
		t.Error("multipart body missing attachment part")
	}
}

func TestSendSurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Forbidden"}`))
	}))
	defer srv.Close()

	c := New("bad-key", "mg.example.com", srv.URL, 5*time.Second)

	_, err := c.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected provider error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "Forbidden") {
		t.Errorf("error missing provider detail: %v", err)
	}
}

func TestSendEmptyTextGetsPlaceholder(t *testing.T) {
	var gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{"id":"<msg-3@mg.example.com>"}`))
	}))
	defer srv.Close()

	c := New("key-test", "mg.example.com", srv.URL, 5*time.Second)

	msg := testMessage()
	msg.Text = ""

	if _, err := c.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(gotBody, "text=") {
		t.Errorf("form body missing text placeholder: %s", gotBody)
	}
}
