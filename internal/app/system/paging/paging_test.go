// internal/app/system/paging/paging_test.go
package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		url       string
		wantPage  int
		wantLimit int
	}{
		{"/tasks", 1, DefaultLimit},
		{"/tasks?page=3&limit=50", 3, 50},
		{"/tasks?page=0", 1, DefaultLimit},
		{"/tasks?page=-2&limit=-5", 1, DefaultLimit},
		{"/tasks?page=abc&limit=xyz", 1, DefaultLimit},
		{"/tasks?limit=1000", 1, MaxLimit},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("GET", tc.url, nil)
		page, limit := Parse(r)
		if page != tc.wantPage || limit != tc.wantLimit {
			t.Errorf("Parse(%s) = (%d, %d), want (%d, %d)",
				tc.url, page, limit, tc.wantPage, tc.wantLimit)
		}
	}
}

func TestEnvelope(t *testing.T) {
	p := Envelope([]int{1, 2, 3}, 45, 2, 20)
	if p.Total != 45 || p.PageNum != 2 || p.Limit != 20 {
		t.Errorf("unexpected envelope: %+v", p)
	}
	if p.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", p.TotalPages)
	}

	empty := Envelope(nil, 0, 1, 20)
	if empty.TotalPages != 0 {
		t.Errorf("TotalPages for empty = %d, want 0", empty.TotalPages)
	}
}
