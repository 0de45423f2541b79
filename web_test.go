package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, root string) (*WebApp, *Studio) {
	t.Helper()
	studio := NewStudio(Vertical, DefaultEncodeOptions())
	return NewWebApp(Config{RootDir: root, Studio: studio}), studio
}

func doRequest(t *testing.T, app *WebApp, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.newServer(context.Background()).Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func decodeState(t *testing.T, body []byte) StateView {
	t.Helper()
	var st StateView
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode state: %v: %s", err, body)
	}
	return st
}

func commandRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, files map[string][]byte, order ...string) *http.Request {
	t.Helper()
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for _, name := range order {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(files[name]); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/images", &b)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestWebUploadProcessDownload(t *testing.T) {
	app, _ := newTestServer(t, "")

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state: %d %s", resp.StatusCode, body)
	}
	if st := decodeState(t, body); len(st.Entries) != 0 || st.Selected != NoSelection {
		t.Fatalf("expected empty state, got %+v", st)
	}

	files := map[string][]byte{
		"top.png":    pngBytes(t, solidImage(16, 8, color.White)),
		"bottom.png": pngBytes(t, solidImage(12, 4, color.Black)),
		"readme.txt": []byte("hello"),
	}
	resp, body = doRequest(t, app, uploadRequest(t, files, "top.png", "readme.txt", "bottom.png"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload: %d %s", resp.StatusCode, body)
	}
	st := decodeState(t, body)
	if len(st.Entries) != 2 || st.Entries[0].Name != "top.png" || st.Entries[1].Name != "bottom.png" {
		t.Fatalf("unexpected entries %+v", st.Entries)
	}

	resp, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/images/"+st.Entries[0].ID, nil))
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" || len(body) == 0 {
		t.Fatalf("entry image: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, body = doRequest(t, app, commandRequest(`{"commands": [{"type": "reorder", "source": 0, "target": 1}, {"type": "process"}]}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("commands: %d %s", resp.StatusCode, body)
	}
	st = decodeState(t, body)
	if st.Entries[0].Name != "bottom.png" || st.Selected != 0 {
		t.Fatalf("reorder did not carry selection: %+v", st)
	}
	if st.Result == nil || st.Result.Width != 16 || st.Result.Height != 12 {
		t.Fatalf("unexpected result %+v", st.Result)
	}

	resp, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/result?download=1", nil))
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Fatalf("result: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "stitch-result.jpg") {
		t.Fatalf("unexpected disposition %q", resp.Header.Get("Content-Disposition"))
	}
	if !bytes.HasPrefix(body, []byte{0xFF, 0xD8}) {
		t.Fatal("result is not a JPEG")
	}
}

func TestWebRejectsMalformedCommands(t *testing.T) {
	app, _ := newTestServer(t, "")
	resp, _ := doRequest(t, app, commandRequest(`{"commands": [{"type": "explode"}]}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp, body := doRequest(t, app, commandRequest(`{"commands": [{"type": "delete", "index": 3}, {"type": "process"}]}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stale gestures should be ignored, got %d %s", resp.StatusCode, body)
	}

	for _, path := range []string{"/api/result", "/api/images/missing"} {
		resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestWebRootDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "shots"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "shots", "one.png"), pngBytes(t, solidImage(9, 7, color.White)), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# notes"), 0o644); err != nil {
		t.Fatal(err)
	}
	app, studio := newTestServer(t, dir)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/ls", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ls: %d %s", resp.StatusCode, body)
	}
	var listing struct {
		Files []struct {
			Name  string    `json:"name"`
			URL   string    `json:"url"`
			Image ImageInfo `json:"image"`
		} `json:"files"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		t.Fatal(err)
	}
	if len(listing.Files) != 1 || listing.Files[0].Name != "shots/one.png" || listing.Files[0].Image != (ImageInfo{9, 7}) {
		t.Fatalf("unexpected listing %s", body)
	}

	resp, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, listing.Files[0].URL, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("thumbnail: %d %s", resp.StatusCode, body)
	}
	if thumb, err := png.Decode(bytes.NewReader(body)); err != nil || thumb.Bounds().Dx() != 9 {
		t.Fatalf("unexpected thumbnail: %v", err)
	}

	importReq := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}
	resp, body = doRequest(t, app, importReq(`{"files": ["../etc/passwd"]}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for escaping path, got %d %s", resp.StatusCode, body)
	}
	resp, body = doRequest(t, app, importReq(`{"files": ["shots/one.png", "notes.md"]}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: %d %s", resp.StatusCode, body)
	}
	if st := studio.State(); len(st.Entries) != 1 || st.Entries[0].Width != 9 {
		t.Fatalf("unexpected state after import %+v", st.Entries)
	}
}

func TestWebWithoutRootDirHasNoLibrary(t *testing.T) {
	app, _ := newTestServer(t, "")
	resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/ls", nil))
	if resp.StatusCode == http.StatusOK {
		t.Fatal("expected /api/ls to be unavailable without a root dir")
	}
}
