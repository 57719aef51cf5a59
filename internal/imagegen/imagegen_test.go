package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestFactoryReturnsErrorForMissingAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	for _, p := range []string{"google", "openai"} {
		if _, err := NewGenerator(p, "m"); err == nil {
			t.Errorf("expected error for provider %q with missing API key", p)
		}
	}
}

func TestFactoryPicksGoogleBackendByModel(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "k")

	gen, err := NewGenerator("google", "imagen-4.0-generate-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gen.(*ImagenGenerator); !ok {
		t.Errorf("expected *ImagenGenerator, got %T", gen)
	}

	gen, err = NewGenerator("google", "gemini-2.5-flash-image")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gen.(*GeminiGenerator); !ok {
		t.Errorf("expected *GeminiGenerator, got %T", gen)
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	if _, err := NewGenerator("anthropic", "x"); err == nil {
		t.Error("expected error for provider without image models")
	}
}

func TestImagenGenerate(t *testing.T) {
	payload := pngBytes(t)
	var captured imagenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/imagen-4.0-generate-001:predict") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]string{{
				"bytesBase64Encoded": base64.StdEncoding.EncodeToString(payload),
				"mimeType":           "image/png",
			}},
		})
	}))
	defer srv.Close()

	gen := NewImagenGenerator("k", "imagen-4.0-generate-001").WithBaseURL(srv.URL)
	img, err := gen.Generate(context.Background(), ImageRequest{
		Prompt:      "fresh bread display",
		Count:       1,
		OutputMIME:  "image/jpeg",
		AspectRatio: AspectWide,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Equal(img.Data, payload) {
		t.Error("payload mismatch")
	}
	if img.MIMEType != "image/png" {
		t.Errorf("mime = %q", img.MIMEType)
	}
	if captured.Parameters.AspectRatio != AspectWide || captured.Parameters.SampleCount != 1 {
		t.Errorf("parameters = %+v", captured.Parameters)
	}
	if captured.Instances[0].Prompt != "fresh bread display" {
		t.Errorf("prompt = %q", captured.Instances[0].Prompt)
	}
}

func TestImagenFilteredPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":[{"raiFilteredReason":"contains people"}]}`))
	}))
	defer srv.Close()

	gen := NewImagenGenerator("k", "imagen").WithBaseURL(srv.URL)
	_, err := gen.Generate(context.Background(), ImageRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "safety") {
		t.Fatalf("expected safety error, got %v", err)
	}
}

func TestImagenAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	gen := NewImagenGenerator("k", "imagen").WithBaseURL(srv.URL)
	_, err := gen.Generate(context.Background(), ImageRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestGeminiGenerate(t *testing.T) {
	payload := pngBytes(t)
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{
						{"text": "here you go"},
						{"inlineData": map[string]string{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString(payload),
						}},
					},
				},
			}},
		})
	}))
	defer srv.Close()

	gen := NewGeminiGenerator("k", "gemini-2.5-flash-image").WithBaseURL(srv.URL)
	img, err := gen.Generate(context.Background(), ImageRequest{Prompt: "icon", AspectRatio: AspectSquare})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Equal(img.Data, payload) {
		t.Error("payload mismatch")
	}

	gen2, _ := captured["generationConfig"].(map[string]any)
	modalities, _ := gen2["responseModalities"].([]any)
	if len(modalities) != 1 || modalities[0] != "IMAGE" {
		t.Errorf("responseModalities = %v", gen2["responseModalities"])
	}
}

func TestGeminiBlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	gen := NewGeminiGenerator("k", "gemini-2.5-flash-image").WithBaseURL(srv.URL)
	if _, err := gen.Generate(context.Background(), ImageRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected blocked prompt error")
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	img := &Image{MIMEType: "image/png", Data: []byte{1, 2, 3, 4}}
	ref := img.DataURL()
	if !strings.HasPrefix(ref, "data:image/png;base64,") {
		t.Fatalf("unexpected data URL %q", ref)
	}
	data, mime, err := DecodeDataURL(ref)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mime != "image/png" || !bytes.Equal(data, img.Data) {
		t.Errorf("round trip = %q %v", mime, data)
	}
}

func TestDecodeDataURLPercentEncoded(t *testing.T) {
	data, mime, err := DecodeDataURL("data:image/svg+xml,%3Csvg%2F%3E")
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mime != "image/svg+xml" || string(data) != "<svg/>" {
		t.Errorf("got %q %q", mime, data)
	}
}

func TestDecodeDataURLRejectsOtherSchemes(t *testing.T) {
	if _, _, err := DecodeDataURL("https://example.com/a.png"); err == nil {
		t.Error("expected error for non-data URL")
	}
}

func TestToJPEG(t *testing.T) {
	out, err := ToJPEG(pngBytes(t))
	if err != nil {
		t.Fatalf("ToJPEG: %v", err)
	}
	if !isJPEG(out) {
		t.Error("output is not JPEG")
	}

	// JPEG input passes through untouched.
	again, err := ToJPEG(out)
	if err != nil {
		t.Fatalf("ToJPEG jpeg: %v", err)
	}
	if !bytes.Equal(again, out) {
		t.Error("JPEG input should be returned unchanged")
	}

	if _, err := ToJPEG([]byte("not an image")); err == nil {
		t.Error("expected decode error")
	}
}

func TestSolidJPEG(t *testing.T) {
	data := SolidJPEG(16, 9, color.Gray{Y: 200})
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if format != "jpeg" || cfg.Width != 16 || cfg.Height != 9 {
		t.Errorf("got %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

type countingGenerator struct{ calls int }

func (c *countingGenerator) Name() string { return "counting" }

func (c *countingGenerator) Generate(ctx context.Context, req ImageRequest) (*Image, error) {
	c.calls++
	return &Image{MIMEType: "image/png", Data: []byte{1}}, nil
}

func TestRateLimitedGeneratorPassesThrough(t *testing.T) {
	inner := &countingGenerator{}
	gen := NewRateLimitedGenerator(inner, 60)
	if _, err := gen.Generate(context.Background(), ImageRequest{Prompt: "x"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if inner.calls != 1 || gen.Name() != "counting" {
		t.Errorf("calls=%d name=%q", inner.calls, gen.Name())
	}
}
