package sam2

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chaos-io/maskswap/segment"
	"github.com/chaos-io/maskswap/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

// fakeService mimics the inference service: it echoes a mask sized like the uploaded image.
func fakeService(t *testing.T, loadStatus int, got *predictReq) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(loadPath, func(w http.ResponseWriter, r *http.Request) {
		var req loadReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(loadStatus)
		_ = json.NewEncoder(w).Encode(loadResp{Weights: req.Weights, Device: "cpu"})
	})
	mux.HandleFunc(predictPath, func(w http.ResponseWriter, r *http.Request) {
		var req predictReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if got != nil {
			*got = req
		}

		data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(req.Image, "data:image/png;base64,"))
		require.NoError(t, err)
		img, err := util.DecodeImage(data)
		require.NoError(t, err)

		b := img.Bounds()
		mask := make([][]bool, b.Dy())
		for y := range mask {
			mask[y] = make([]bool, b.Dx())
			for x := 0; x < b.Dx()/2; x++ {
				mask[y][x] = true
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"masks": [][][]bool{mask}})
	})
	return httptest.NewServer(mux)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	server := fakeService(t, http.StatusOK, nil)
	defer server.Close()

	c, err := Load(context.Background(), Options{Endpoint: server.URL + "/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights, c.opts.Weights)
	assert.Equal(t, server.URL, c.opts.Endpoint)
	assert.Equal(t, DefaultMaxSide, c.opts.MaxSide)
}

func TestLoad_Unavailable(t *testing.T) {
	t.Parallel()

	server := fakeService(t, http.StatusNotFound, nil)
	defer server.Close()

	_, err := Load(context.Background(), Options{Endpoint: server.URL, Weights: "missing.pt"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.pt")
	assert.Contains(t, err.Error(), "404")

	_, err = Load(context.Background(), Options{}, nil)
	assert.ErrorContains(t, err, "endpoint is not configured")
}

func TestClient_Predict(t *testing.T) {
	t.Parallel()

	var got predictReq
	server := fakeService(t, http.StatusOK, &got)
	defer server.Close()

	c := NewClient(Options{Endpoint: server.URL, Timeout: 5 * time.Second}, nil)
	points := []segment.Point{{X: 10, Y: 20}, {X: 30.5, Y: 4}}

	scores, err := c.Predict(context.Background(), testImage(40, 30), points)
	require.NoError(t, err)
	assert.Equal(t, 40, scores.Width)
	assert.Equal(t, 30, scores.Height)
	assert.Equal(t, 1.0, scores.Values[0])
	assert.Equal(t, 0.0, scores.Values[39])

	assert.Equal(t, [][2]float64{{10, 20}, {30.5, 4}}, got.Points)
	assert.Equal(t, []int{1, 1}, got.Labels)
	assert.Equal(t, DefaultWeights, got.Weights)
}

func TestClient_PredictDownscalesLargeImages(t *testing.T) {
	t.Parallel()

	var got predictReq
	server := fakeService(t, http.StatusOK, &got)
	defer server.Close()

	c := NewClient(Options{Endpoint: server.URL, MaxSide: 50}, nil)
	scores, err := c.Predict(context.Background(), testImage(200, 100), []segment.Point{{X: 100, Y: 40}})
	require.NoError(t, err)
	assert.Equal(t, 50, scores.Width)
	assert.Equal(t, 25, scores.Height)
	assert.Equal(t, [][2]float64{{25, 10}}, got.Points)

	// the provider brings the smaller mask back to the original size
	mask, _, err := segment.NewModelProvider(c).Refine(context.Background(), testImage(200, 100), []segment.Point{{X: 100, Y: 40}}, nil)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), mask.Bounds())
}

func TestClient_PredictErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		status  int
		wantErr string
	}{
		{name: "http error", status: http.StatusInternalServerError, body: `{"error":"cuda oom"}`, wantErr: "status 500"},
		{name: "service error", status: http.StatusOK, body: `{"error":"bad prompt"}`, wantErr: "sam2: bad prompt"},
		{name: "no masks", status: http.StatusOK, body: `{"masks":[]}`, wantErr: "no masks"},
		{name: "empty mask", status: http.StatusOK, body: `{"masks":[[]]}`, wantErr: "empty mask"},
		{name: "ragged mask", status: http.StatusOK, body: `{"masks":[[[1,0],[1]]]}`, wantErr: "row 1"},
		{name: "bad value", status: http.StatusOK, body: `{"masks":[[["x"]]]}`, wantErr: "neither number nor boolean"},
		{name: "null value", status: http.StatusOK, body: `{"masks":[[[1,null]]]}`, wantErr: "mask value is null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(Options{Endpoint: server.URL}, nil).Predict(context.Background(), testImage(4, 4), []segment.Point{{X: 1, Y: 1}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScore_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var got []score
	require.NoError(t, json.Unmarshal([]byte(`[true, false, 0.25, 1, 0]`), &got))
	assert.Equal(t, []score{1, 0, 0.25, 1, 0}, got)

	assert.Error(t, json.Unmarshal([]byte(`[1, null]`), &got))
}
