package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/labstack/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaveworks/gitstorage/pkg/storage"
	"github.com/weaveworks/gitstorage/pkg/util/gittest"
)

func demoServer(t *testing.T) (*echo.Echo, []plumbing.Hash) {
	dir := t.TempDir()
	_, b := gittest.Init(t, dir)
	revs, _ := b.Demo(plumbing.Master)
	return New(func() (*storage.Storage, error) { return storage.Open(dir) }), revs
}

func get(t *testing.T, e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into), rec.Body.String())
}

func TestServer_Routes(t *testing.T) {
	e, revs := demoServer(t)

	rec := get(t, e, "/rev")
	require.Equal(t, http.StatusOK, rec.Code)
	var rev Revision
	decode(t, rec, &rev)
	assert.Equal(t, Revision{Rev: revs[3].String(), ShortRev: revs[3].String()[:12]}, rev)

	rec = get(t, e, "/files")
	require.Equal(t, http.StatusOK, rec.Code)
	var files []string
	decode(t, rec, &files)
	assert.Equal(t, []string{"file1", "file2", "file3", gittest.NestedPath}, files)

	rec = get(t, e, "/listdir")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []string
	decode(t, rec, &entries)
	assert.Equal(t, []string{"file1", "file2", "file3", "nested"}, entries)

	rec = get(t, e, "/listdir/nested")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &entries)
	assert.Equal(t, []string{"deep"}, entries)

	rec = get(t, e, "/file/"+gittest.NestedPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, gittest.NestedContent, rec.Body.String())
	assert.Equal(t, echo.MIMEOctetStream, rec.Header().Get(echo.HeaderContentType))

	rec = get(t, e, "/pathinfo/file1")
	require.Equal(t, http.StatusOK, rec.Code)
	var info storage.PathInfo
	decode(t, rec, &info)
	assert.Equal(t, storage.PathInfo{Basename: "file1", Type: storage.PathTypeFile, Size: 38, Date: "2013-07-22 16:43:20"}, info)

	rec = get(t, e, "/log?count=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var log []storage.LogEntry
	decode(t, rec, &log)
	require.Len(t, log, 2)
	assert.Equal(t, revs[3].String(), log[0].Node)
	assert.Equal(t, "added3", log[1].Desc)
}

func TestServer_Rev(t *testing.T) {
	e, revs := demoServer(t)

	rec := get(t, e, "/listdir?rev="+revs[0].String())
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []string
	decode(t, rec, &entries)
	assert.Equal(t, []string{"file1", "file2"}, entries)

	rec = get(t, e, "/log?start="+revs[1].String())
	require.Equal(t, http.StatusOK, rec.Code)
	var log []storage.LogEntry
	decode(t, rec, &log)
	assert.Len(t, log, 2)
}

func TestServer_Errors(t *testing.T) {
	e, _ := demoServer(t)
	tests := []struct {
		target string
		code   int
	}{
		{"/file/missing", http.StatusNotFound},
		{"/pathinfo/nested/missing", http.StatusNotFound},
		{"/listdir/file1", http.StatusBadRequest},
		{"/listdir/" + gittest.NestedPath, http.StatusBadRequest},
		{"/file/nested", http.StatusBadRequest},
		{"/files?rev=nonexistent", http.StatusNotFound},
		{"/log?start=nonexistent", http.StatusNotFound},
		{"/log?count=many", http.StatusBadRequest},
		{"/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, e, tt.target)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_EmptyRepository(t *testing.T) {
	dir := t.TempDir()
	gittest.Init(t, dir)
	e := New(func() (*storage.Storage, error) { return storage.Open(dir) })

	rec := get(t, e, "/listdir")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = get(t, e, "/pathinfo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"basename":"","type":"folder","size":0,"date":""}`, rec.Body.String())

	rec = get(t, e, "/log")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
