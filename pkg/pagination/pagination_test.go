package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec), rec
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{DefaultLimit, 0}},
		{"?limit=50&offset=10", Params{50, 10}},
		{"?limit=500", Params{MaxLimit, 0}},
		{"?limit=0", Params{DefaultLimit, 0}},
		{"?limit=abc&offset=xyz", Params{DefaultLimit, 0}},
		{"?offset=-5", Params{DefaultLimit, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := newContext("/" + tt.query)
			if got := FromContext(c); got != tt.want {
				t.Errorf("FromContext(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestParams_Next(t *testing.T) {
	tests := []struct {
		p      Params
		total  int
		off    int
		exists bool
	}{
		{Params{10, 0}, 25, 10, true},
		{Params{10, 15}, 25, 25, false},
		{Params{10, 20}, 25, 30, false},
		{Params{10, 0}, 0, 10, false},
	}
	for _, tt := range tests {
		off, ok := tt.p.Next(tt.total)
		if off != tt.off || ok != tt.exists {
			t.Errorf("%+v.Next(%d) = %d, %v; want %d, %v", tt.p, tt.total, off, ok, tt.off, tt.exists)
		}
	}
}

func TestParams_Prev(t *testing.T) {
	tests := []struct {
		p      Params
		off    int
		exists bool
	}{
		{Params{10, 0}, 0, false},
		{Params{10, 20}, 10, true},
		{Params{10, 5}, 0, true},
	}
	for _, tt := range tests {
		off, ok := tt.p.Prev()
		if off != tt.off || ok != tt.exists {
			t.Errorf("%+v.Prev() = %d, %v; want %d, %v", tt.p, off, ok, tt.off, tt.exists)
		}
	}
}

func TestRespond(t *testing.T) {
	c, rec := newContext("/api/doctors?limit=10&offset=10&sort=name")

	if err := FromContext(c).Respond(c, http.StatusOK, []string{"a", "b"}, 25); err != nil {
		t.Fatal(err)
	}

	var body Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 25 || body.Limit != 10 || body.Offset != 10 || !body.HasMore {
		t.Errorf("unexpected envelope %+v", body)
	}

	want := `</api/doctors?limit=10&offset=20&sort=name>; rel="next", </api/doctors?limit=10&offset=0&sort=name>; rel="prev"`
	if got := rec.Header().Get("Link"); got != want {
		t.Errorf("Link = %q, want %q", got, want)
	}
}

func TestRespond_SinglePage(t *testing.T) {
	c, rec := newContext("/api/patients")

	if err := FromContext(c).Respond(c, http.StatusOK, []string{"a"}, 1); err != nil {
		t.Fatal(err)
	}
	if got := rec.Header().Get("Link"); got != "" {
		t.Errorf("expected no Link header, got %q", got)
	}

	var body Response
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.HasMore {
		t.Error("expected has_more false on the last page")
	}
}
