package webui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStaticFSServesIndex(t *testing.T) {
	srv := httptest.NewServer(http.FileServer(StaticFS()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"/v1/params", "/v1/decode"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("index.html does not reference %s", want)
		}
	}
}
