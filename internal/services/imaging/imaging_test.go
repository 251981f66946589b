package imaging

import (
    "bytes"
    "context"
    "image"
    "image/color"
    "image/jpeg"
    "image/png"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
    img := image.NewRGBA(image.Rect(0, 0, w, h))
    for y := 0; y < h; y++ {
        for x := 0; x < w; x++ {
            img.SetRGBA(x, y, c)
        }
    }
    return img
}

// framed paints a centre colour inside a border that the sampler must ignore.
func framed(w, h int, border, centre color.RGBA) *image.RGBA {
    img := solid(w, h, border)
    for y := h * 3 / 10; y < h*7/10; y++ {
        for x := w * 3 / 10; x < w*7/10; x++ {
            img.SetRGBA(x, y, centre)
        }
    }
    return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
    t.Helper()
    var buf bytes.Buffer
    require.NoError(t, png.Encode(&buf, img))
    return buf.Bytes()
}

func TestDominantColor(t *testing.T) {
    cases := []struct {
        name string
        img  image.Image
        want string
    }{
        {"red shirt", solid(400, 300, color.RGBA{200, 30, 30, 255}), "red"},
        {"navy centre, yellow border", framed(120, 120, color.RGBA{230, 200, 30, 255}, color.RGBA{22, 32, 78, 255}), "navy"},
        {"small image is not upscaled", solid(10, 10, color.RGBA{30, 150, 60, 255}), "green"},
        {"off palette", solid(50, 50, color.RGBA{100, 200, 200, 255}), ""},
        {"all highlights", solid(50, 50, color.RGBA{250, 250, 250, 255}), ""},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            res, err := DominantColor(tc.img)
            require.NoError(t, err)
            assert.Equal(t, tc.want, res.Name, "rgb %v", res.RGB)
            if tc.want == "" {
                assert.Zero(t, res.Confidence)
            } else {
                assert.Greater(t, res.Confidence, 40.0)
            }
        })
    }

    _, err := DominantColor(image.NewRGBA(image.Rect(0, 0, 0, 0)))
    assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestNameColor_Confidence(t *testing.T) {
    exact := nameColor([3]int{200, 30, 30})
    assert.Equal(t, "red", exact.Name)
    assert.Equal(t, 100.0, exact.Confidence)

    off := nameColor([3]int{210, 30, 30})
    assert.Equal(t, "red", off.Name)
    assert.InDelta(t, 80.0, off.Confidence, 0.001)
}

func TestDetectHints(t *testing.T) {
    texts := []string{"MADE IN THAILAND", "FLY EMIRATES", "Dri-FIT ADV"}
    assert.Equal(t, "Fly Emirates", DetectSponsor(texts))
    assert.Equal(t, "DRI-FIT", DetectTechnology(texts))

    assert.Equal(t, "AIG", DetectSponsor([]string{"aig"}))
    assert.Equal(t, "", DetectSponsor([]string{"campaign 2007"}), "aig inside a word")
    assert.Equal(t, "", DetectTechnology([]string{"home shirt"}))
}

func TestAnalyze(t *testing.T) {
    a := NewAnalyzer(nil)
    img := encodePNG(t, solid(300, 300, color.RGBA{30, 60, 180, 255}))

    res, err := a.Analyze(context.Background(), bytes.NewReader(img), []string{"ART CZ3984-100", "AEROREADY", "Chevrolet"})
    require.NoError(t, err)
    assert.Equal(t, "png", res.Format)
    assert.Equal(t, "blue", res.Color.Name)
    assert.Equal(t, "AEROREADY", res.TechnologyHint)
    require.Len(t, res.ExtractedCodes, 1)
    assert.Equal(t, "CZ3984-100", res.ExtractedCodes[0].Code)

    obs := res.Observation()
    assert.Equal(t, "blue", obs.DominantColor)
    assert.Equal(t, "Chevrolet", obs.SponsorHint)
    assert.Equal(t, 100.0, obs.ColorConfidence)
}

func TestAnalyze_JPEGAndTextOnly(t *testing.T) {
    a := NewAnalyzer(nil)
    var buf bytes.Buffer
    require.NoError(t, jpeg.Encode(&buf, solid(64, 64, color.RGBA{200, 30, 30, 255}), &jpeg.Options{Quality: 95}))

    res, err := a.Analyze(context.Background(), &buf, nil)
    require.NoError(t, err)
    assert.Equal(t, "jpeg", res.Format)
    assert.Equal(t, "red", res.Color.Name)

    textOnly, err := a.Analyze(context.Background(), nil, []string{"IS7462"})
    require.NoError(t, err)
    assert.Empty(t, textOnly.Color.Name)
    assert.Len(t, textOnly.ExtractedCodes, 1)

    _, err = a.Analyze(context.Background(), bytes.NewReader([]byte("not an image")), nil)
    assert.Error(t, err)
}
