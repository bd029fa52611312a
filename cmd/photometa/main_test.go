package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electronjoe/photometa/internal/metadata"
	"github.com/electronjoe/photometa/internal/testutil"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// testEnv holds a config directory whose geocoder points at a local server.
type testEnv struct {
	configPath string
}

func newTestEnv(t *testing.T, geocoder http.HandlerFunc) testEnv {
	t.Helper()
	if geocoder == nil {
		geocoder = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}
	}
	srv := httptest.NewServer(geocoder)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := fmt.Sprintf(`{"logLevel": "error", "geocoder": {"baseURL": %q, "userAgent": "test", "limit": 5, "timeoutSeconds": 5}}`, srv.URL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return testEnv{configPath: path}
}

func (e testEnv) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"-config", e.configPath}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func readCaption(t *testing.T, path string) string {
	t.Helper()
	rec, err := metadata.New(metadata.NewNativeCodec(), nil).Read(path)
	require.NoError(t, err)
	if rec.Caption == nil {
		return ""
	}
	return *rec.Caption
}

func TestRun_NoCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "usage: photometa")
	assert.Contains(t, stderr.String(), "below 50")
}

func TestRun_UnknownCommand(t *testing.T) {
	r := newTestEnv(t, nil).run(t, "", "frobnicate")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `unknown command "frobnicate"`)
}

func TestRun_Parse(t *testing.T) {
	r := newTestEnv(t, nil).run(t, "", "parse", "5/11/01")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "May 11, 2001\t2001:05:11 00:00:00\n", r.stdout)
}

func TestRun_ParseFailure(t *testing.T) {
	r := newTestEnv(t, nil).run(t, "", "parse", "whenever")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "unrecognized date")
}

func TestRun_SetShowAndRecent(t *testing.T) {
	env := newTestEnv(t, nil)
	path := testutil.WriteJPEG(t, t.TempDir(), "a.jpg")

	r := env.run(t, "", "set", path, "-date", "May 11 2001", "-caption", " Beach ", "-lat", "-33.5", "-lon", "151.25")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "date:     May 11, 2001")
	assert.Contains(t, r.stdout, "caption:  Beach")
	assert.Contains(t, r.stdout, "location: -33.500000, 151.250000")
	assert.FileExists(t, metadata.BackupPath(path))

	r = env.run(t, "", "show", path)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "caption:  Beach")

	r = env.run(t, "", "recent")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "date:\n  May 11, 2001\nlocation:\n  -33.500000, 151.250000\n", r.stdout)
}

func TestRun_SetRejectsConflictingLocations(t *testing.T) {
	env := newTestEnv(t, nil)
	path := testutil.WriteJPEG(t, t.TempDir(), "a.jpg")

	r := env.run(t, "", "set", path, "-lat", "1", "-lon", "2", "-clear-location")
	assert.Equal(t, 1, r.code)
	assert.NoFileExists(t, metadata.BackupPath(path))

	r = env.run(t, "", "set", path)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "nothing to change")
}

func TestRun_SetInvalidCoordinate(t *testing.T) {
	env := newTestEnv(t, nil)
	path := testutil.WriteJPEG(t, t.TempDir(), "a.jpg")

	r := env.run(t, "", "set", path, "-lat", "95", "-lon", "0")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "coordinate out of range")
}

func TestRun_SetPlace(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat": "59.9133", "lon": "10.7389", "display_name": "Oslo, Norway"}]`))
	})
	path := testutil.WriteJPEG(t, t.TempDir(), "a.jpg")

	r := env.run(t, "", "set", path, "-place", "Oslo")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "using Oslo, Norway")
	assert.Contains(t, r.stdout, "location: 59.913300, 10.738900")
}

func TestRun_Geocode(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Zion National Park", r.URL.Query().Get("q"))
		w.Write([]byte(`[{"lat": "37.2982", "lon": "-113.0263", "display_name": "Zion National Park, Utah"}]`))
	})

	r := env.run(t, "", "geocode", "Zion", "National", "Park")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "37.298200, -113.026300\tZion National Park, Utah\n", r.stdout)
}

func TestRun_List(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := t.TempDir()
	a := testutil.WriteJPEG(t, dir, "a.jpg")
	testutil.WriteJPEG(t, dir, "sub/b.jpg")
	require.Equal(t, 0, env.run(t, "", "set", a, "-caption", "first").code)

	r := env.run(t, "", "list", dir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, a+"\t-\tfirst\t-\n", r.stdout)

	r = env.run(t, "", "list", "-r", dir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Len(t, strings.Split(strings.TrimSpace(r.stdout), "\n"), 2)
}

func TestRun_EditSession(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := t.TempDir()
	a := testutil.WriteJPEG(t, dir, "a.jpg")
	b := testutil.WriteJPEG(t, dir, "b.jpg")

	script := strings.Join([]string{
		"c Lake day",
		"d 1999",
		"n",
		"copy",
		"d not a date",
		"n",
		"q",
	}, "\n")
	r := env.run(t, script, "edit", dir)
	require.Equal(t, 0, r.code, r.stderr)

	assert.Contains(t, r.stdout, "[1/2] a.jpg")
	assert.Contains(t, r.stdout, "[2/2] b.jpg")
	assert.Contains(t, r.stdout, "copied date, caption")
	assert.Contains(t, r.stdout, "unrecognized date")
	assert.Contains(t, r.stdout, "already at last photo")

	assert.Equal(t, "Lake day", readCaption(t, a))
	assert.Equal(t, "Lake day", readCaption(t, b))
}
