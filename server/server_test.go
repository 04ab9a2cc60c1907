package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hb9tf/rfi/corpus"
	"github.com/hb9tf/rfi/dataset"
)

func testServer(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	samples := make([]float64, 24)
	labels := make([]int, 24)
	for i := range samples {
		samples[i] = float64(i % 5)
		labels[i] = i % 2
	}
	c, err := corpus.New(samples, labels, 2)
	require.NoError(t, err)
	c.BuildID = "build"
	c.Version = "1"
	d, err := dataset.New(c, dataset.Options{
		SequenceLength:       4,
		TrainingPercentage:   50,
		ValidationPercentage: 25,
		NumProcesses:         2,
		Rand:                 rand.New(rand.NewPCG(1, 2)),
	})
	require.NoError(t, err)
	return (&WindowServer{data: d, header: c.Header}).Router()
}

func get(t *testing.T, r *gin.Engine, path string, v any) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	if v != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
	}
	return w.Code
}

func TestPartition(t *testing.T) {
	r := testServer(t)
	tests := []struct {
		path string
		want int
	}{
		// 20 windows: 10 training, 5 validation, 5 test.
		{path: "/rfi/v1/partitions/training", want: 10},
		{path: "/rfi/v1/partitions/validation", want: 5},
		{path: "/rfi/v1/partitions/test", want: 5},
		{path: "/rfi/v1/partitions/training?rank=0", want: 5},
		{path: "/rfi/v1/partitions/test?rank=1", want: 3},
		{path: "/rfi/v1/partitions/training?rank=1&shortRunSize=2", want: 2},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			var resp partitionResponse
			require.Equal(t, http.StatusOK, get(t, r, tc.path, &resp))
			assert.Equal(t, tc.want, resp.Length)
		})
	}
}

func TestBadRequests(t *testing.T) {
	r := testServer(t)
	for _, path := range []string{
		"/rfi/v1/partitions/bogus",
		"/rfi/v1/partitions/training?rank=2",
		"/rfi/v1/partitions/training?rank=x",
		"/rfi/v1/partitions/training?shortRunSize=-1",
		"/rfi/v1/partitions/training/windows/x",
	} {
		assert.Equal(t, http.StatusBadRequest, get(t, r, path, nil), path)
	}
}

func TestWindow(t *testing.T) {
	r := testServer(t)
	var resp windowResponse
	require.Equal(t, http.StatusOK, get(t, r, "/rfi/v1/partitions/validation/windows/4", &resp))
	assert.Equal(t, 4, resp.Index)
	assert.Len(t, resp.Features, 6+7*4)
	assert.Len(t, resp.Label, 2)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/rfi/v1/partitions/validation/windows/5", nil))
	assert.Equal(t, http.StatusNotFound, get(t, r, fmt.Sprintf("/rfi/v1/partitions/test/windows/%d?rank=0", 2), nil))
}

func TestInfo(t *testing.T) {
	r := testServer(t)
	var resp infoResponse
	require.Equal(t, http.StatusOK, get(t, r, "/rfi/v1/info", &resp))
	assert.Equal(t, "build", resp.BuildID)
	assert.Equal(t, 20, resp.LengthData)
	assert.Equal(t, 34, resp.FeatureLength)
	assert.Equal(t, 2, resp.NumProcesses)
	assert.Equal(t, 2, resp.NumberClasses)
}
