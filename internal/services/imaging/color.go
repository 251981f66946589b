// Package imaging pulls the visual facts the cross-checker compares against
// the catalogue: the shirt's dominant colour and sponsor or technology words
// read off the label.
package imaging

import (
    "errors"
    "fmt"
    "image"
    _ "image/gif"
    _ "image/jpeg"
    _ "image/png"
    "io"
    "math"

    "golang.org/x/image/draw"
    _ "golang.org/x/image/webp"
)

var ErrEmptyImage = errors.New("image has no pixels")

// maxSampleSide bounds the working copy; colour averaging gains nothing from
// more pixels.
const maxSampleSide = 200

type namedColor struct {
    name      string
    r, g, b   float64
    tolerance float64
}

var palette = []namedColor{
    {"red", 200, 30, 30, 60},
    {"blue", 30, 60, 180, 60},
    {"navy", 20, 30, 80, 40},
    {"white", 240, 240, 240, 30},
    {"black", 30, 30, 30, 40},
    {"yellow", 230, 200, 30, 50},
    {"green", 30, 150, 60, 60},
    {"orange", 230, 120, 30, 50},
    {"purple", 100, 40, 140, 50},
    {"pink", 230, 100, 150, 50},
    {"grey", 130, 130, 130, 40},
    {"gold", 200, 170, 50, 50},
}

// ColorResult is the averaged colour of the sampled region. Name is empty
// when no palette entry is within tolerance.
type ColorResult struct {
    Name       string  `json:"name,omitempty"`
    RGB        [3]int  `json:"rgb"`
    Confidence float64 `json:"confidence"`
}

// DecodeImage reads a JPEG, PNG, GIF or WebP image.
func DecodeImage(r io.Reader) (image.Image, string, error) {
    img, format, err := image.Decode(r)
    if err != nil {
        return nil, "", fmt.Errorf("decode image: %w", err)
    }
    return img, format, nil
}

// DominantColor averages the central 40% of img, ignoring near-black and
// near-white pixels, and names the result from the palette.
func DominantColor(img image.Image) (ColorResult, error) {
    b := img.Bounds()
    if b.Empty() {
        return ColorResult{}, ErrEmptyImage
    }
    small := downscale(img)
    sb := small.Bounds()
    x0 := sb.Min.X + sb.Dx()*3/10
    y0 := sb.Min.Y + sb.Dy()*3/10
    w := max(sb.Dx()*4/10, 1)
    h := max(sb.Dy()*4/10, 1)

    var sumR, sumG, sumB float64
    var n int
    for y := y0; y < y0+h && y < sb.Max.Y; y++ {
        for x := x0; x < x0+w && x < sb.Max.X; x++ {
            r, g, bl, _ := small.At(x, y).RGBA()
            rf, gf, bf := float64(r>>8), float64(g>>8), float64(bl>>8)
            brightness := (rf + gf + bf) / 3
            if brightness <= 20 || brightness >= 240 {
                continue
            }
            sumR += rf
            sumG += gf
            sumB += bf
            n++
        }
    }
    if n == 0 {
        return ColorResult{RGB: [3]int{128, 128, 128}}, nil
    }
    avg := [3]int{
        int(math.Round(sumR / float64(n))),
        int(math.Round(sumG / float64(n))),
        int(math.Round(sumB / float64(n))),
    }
    return nameColor(avg), nil
}

func nameColor(rgb [3]int) ColorResult {
    res := ColorResult{RGB: rgb}
    best := math.Inf(1)
    for _, c := range palette {
        d := math.Sqrt(sq(float64(rgb[0])-c.r) + sq(float64(rgb[1])-c.g) + sq(float64(rgb[2])-c.b))
        if d < c.tolerance && d < best {
            best = d
            res.Name = c.name
        }
    }
    if res.Name != "" {
        res.Confidence = math.Max(0, math.Min(100, 100-2*best))
    }
    return res
}

func sq(v float64) float64 { return v * v }

func downscale(img image.Image) image.Image {
    b := img.Bounds()
    if b.Dx() <= maxSampleSide && b.Dy() <= maxSampleSide {
        return img
    }
    scale := math.Min(float64(maxSampleSide)/float64(b.Dx()), float64(maxSampleSide)/float64(b.Dy()))
    dst := image.NewRGBA(image.Rect(0, 0, max(int(float64(b.Dx())*scale), 1), max(int(float64(b.Dy())*scale), 1)))
    draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
    return dst
}
