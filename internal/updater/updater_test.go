package updater

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"v1.0.0", "1.0.0", 0},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0", "1.0.10", -1},
		{"2.0", "1.9.9", 1},
		{"1.0", "1.0.0", 0},
		{"1.0.1", "1.0", 1},
	}
	for _, c := range cases {
		if got := CompareVersions(c.a, c.b); got != c.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCheckUpdate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Manifest{
			Version:          "1.2.0",
			DownloadURLLinux: "https://example.com/qtfaststart-linux",
			ReleaseNotes:     "bug fixes",
		})
	}))
	defer server.Close()

	result, err := CheckUpdate("1.1.0", server.URL)
	if err != nil {
		t.Fatalf("CheckUpdate failed: %v", err)
	}
	if !result.Available {
		t.Fatal("expected an update to be available")
	}
	if result.Version != "1.2.0" || result.ReleaseNotes != "bug fixes" {
		t.Errorf("unexpected result: %+v", result)
	}

	result, err = CheckUpdate("1.2.0", server.URL)
	if err != nil {
		t.Fatalf("CheckUpdate failed: %v", err)
	}
	if result.Available {
		t.Error("same version must not report an update")
	}
}

func TestCheckUpdateBadStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	if _, err := CheckUpdate("1.0.0", server.URL); err == nil {
		t.Error("expected error for missing manifest")
	}
}
