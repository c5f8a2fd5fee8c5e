package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRender_InjectsPageValues(t *testing.T) {
	body, err := Render(Page{
		Title:        "Solver",
		SolvePath:    "/ui/solve",
		PollInterval: 750 * time.Millisecond,
		InvalidInput: "Invalid input for solver!",
		Solving:      "Solving:",
		Sentinel:     "over",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(body)
	for _, want := range []string{"750", `"over"`, `id="rn"`, `id="delta"`, `id="solve"`, `id="output"`} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}
}

func TestRender_ScriptSharesNumberPatternAndDropsStalePolls(t *testing.T) {
	body, err := Render(Page{
		SolvePath:     "/ui/solve",
		Sentinel:      "over",
		NumberPattern: `^\d+$`,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(body)
	for _, want := range []string{
		`new RegExp("^\\d`,
		"numberRe.test(s)",
		"generation++",
		"if (gen !== generation) return;",
		"poll(gen)",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected page script to contain %q", want)
		}
	}
	if strings.Contains(html, "setTimeout(poll, interval)") {
		t.Fatalf("poll must be scheduled with its generation")
	}
}

func TestPage_PollMillisDefaultsToOneSecond(t *testing.T) {
	if got := (Page{}).PollMillis(); got != 1000 {
		t.Fatalf("expected 1000, got %d", got)
	}
}

func TestHandler_ServesHTMLAndRejectsPost(t *testing.T) {
	h, err := Handler(Page{Title: "Solver", SolvePath: "/ui/solve"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected text/html, got %q", ct)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example/", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
