package main

import (
	"bytes"
	"context"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse/internal/metrics"
	"github.com/edupulse/edupulse/internal/pipeline"
	"github.com/edupulse/edupulse/internal/profile"
	"github.com/edupulse/edupulse/internal/registry"
	"github.com/edupulse/edupulse/internal/scorer"
	"github.com/edupulse/edupulse/internal/store"
)

const uploadCSV = `Student ID,Name,Attendance Rate,CGPA,Study Hours Per Day,Past Failures,Family Income,Scholarship
S1,Asha,45,3.0,1,2,Low,No
S2,Ben,90,8.5,6,0,High,Yes
S3,Chen,70,6.0,3,0,Medium,No
`

// newTestEnv builds the scoring stack against an empty model directory and,
// when withStore is set, a temp SQLite store.
func newTestEnv(t *testing.T, withStore bool) *appEnv {
	t.Helper()
	sc := scorer.DefaultScorerConfig()
	env := &appEnv{Metrics: metrics.New()}
	env.Models = registry.New(t.TempDir(), env.Metrics)
	env.Scorer = scorer.New(env.Models, sc, env.Metrics)
	env.Profiles = profile.New(sc)

	var sink pipeline.ProfileSink
	if withStore {
		st, err := store.NewSQLite(filepath.Join(t.TempDir(), "edupulse.db"))
		require.NoError(t, err)
		require.NoError(t, st.Migrate(context.Background()))
		env.Store = st
		sink = st
		t.Cleanup(env.Close)
	}
	env.Processor = pipeline.New(env.Scorer, env.Profiles, sink, env.Metrics)
	return env
}

// multipartUpload builds a predict request body with the file in field.
func multipartUpload(t *testing.T, field, filename, body string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doRequest(h http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// getFreePort returns a free TCP port on localhost.
func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}
