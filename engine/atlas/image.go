package atlas

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// cropImage returns a new RGBA image containing the pixels of src within r,
// clamped to src's bounds.
func cropImage(src image.Image, r image.Rectangle) *image.RGBA {
	r = r.Intersect(src.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), src, r.Min, draw.Src)
	return out
}

// padEdgeReplicate returns a new image, pad pixels larger on every side than
// src, with the border extended by edge replication, per §4.3 step 7's
// "bleed" requirement — this prevents bilinear sampling at atlas seams from
// picking up a neighboring chart's pixels.
func padEdgeReplicate(src *image.RGBA, pad int) *image.RGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewRGBA(image.Rect(0, 0, w+2*pad, h+2*pad))

	draw.Draw(out, image.Rect(pad, pad, pad+w, pad+h), src, image.Point{}, draw.Src)

	clampX := func(x int) int {
		if x < 0 {
			return 0
		}
		if x >= w {
			return w - 1
		}
		return x
	}
	clampY := func(y int) int {
		if y < 0 {
			return 0
		}
		if y >= h {
			return h - 1
		}
		return y
	}

	for oy := 0; oy < h+2*pad; oy++ {
		sy := clampY(oy - pad)
		for ox := 0; ox < w+2*pad; ox++ {
			if ox >= pad && ox < pad+w && oy >= pad && oy < pad+h {
				continue
			}
			sx := clampX(ox - pad)
			out.Set(ox, oy, src.At(sx, sy))
		}
	}
	return out
}

// resizeBiLinear scales src to exactly w x h using golang.org/x/image/draw's
// bilinear scaler, used when blitting a padded chart block into its
// destination atlas rectangle if the source crop and destination slot sizes
// differ by rounding. engine/glb downsamples its textures with its own
// helper.
func resizeBiLinear(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// blit copies src into dst at the given top-left offset, overwriting
// whatever was there.
func blit(dst draw.Image, src image.Image, x, y int) {
	r := image.Rect(x, y, x+src.Bounds().Dx(), y+src.Bounds().Dy())
	draw.Draw(dst, r, src, image.Point{}, draw.Src)
}

// encodeImage writes img in the requested format. asJPEG selects JPEG
// quality 75 per §4.3 step 9; otherwise PNG (which preserves alpha).
func encodeImage(img image.Image, asJPEG bool) ([]byte, string, error) {
	var buf bytes.Buffer
	if asJPEG {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/png", nil
}

func nextPowerOfTwo(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
