package keymap

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImagesDir is where find_image looks up template images by name,
// relative to the process's working directory — "relative to
// keymap/images/" per scriptapi.h's findImage doc comment.
var ImagesDir = filepath.Join("keymap", "images")

type templateCacheEntry struct {
	gray   []byte
	w, h   int
}

var (
	templateMu    sync.Mutex
	templateCache = map[string]templateCacheEntry{}
)

// loadTemplate decodes and greyscale-caches a template image by name,
// reusing any decode already performed for an identical find_image call
// elsewhere in the same key map.
func loadTemplate(name string) (gray []byte, w, h int, err error) {
	templateMu.Lock()
	if e, ok := templateCache[name]; ok {
		templateMu.Unlock()
		return e.gray, e.w, e.h, nil
	}
	templateMu.Unlock()

	f, err := os.Open(filepath.Join(ImagesDir, name))
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, err
	}
	g, w, h := toGray(img)

	templateMu.Lock()
	templateCache[name] = templateCacheEntry{gray: g, w: w, h: h}
	templateMu.Unlock()
	return g, w, h, nil
}

func toGray(img image.Image) (gray []byte, w, h int) {
	b := img.Bounds()
	w, h = b.Dx(), b.Dy()
	gray = make([]byte, w*h)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			gray[i] = byte((r*299 + g*587 + bl*114) / 1000 >> 8)
			i++
		}
	}
	return gray, w, h
}

// rgbToGray converts a packed RGB byte buffer (3 bytes per pixel, as
// produced by FrameGrabber) to the same greyscale representation
// toGray produces for templates, so matching compares like for like.
func rgbToGray(rgb []byte, w, h int) []byte {
	gray := make([]byte, w*h)
	for i := 0; i < w*h; i++ {
		r := uint32(rgb[i*3])
		g := uint32(rgb[i*3+1])
		b := uint32(rgb[i*3+2])
		gray[i] = byte((r*299 + g*587 + b*114) / 1000)
	}
	return gray
}

// slidingMatch searches the region of frame bounded by the normalised
// ROI (x1,y1)-(x2,y2) for the best-matching placement of tmpl, returning
// a hit only if its similarity score clears threshold. Matching is a
// coarse-stepped (every 4th pixel) mean-absolute-difference scan; fine
// enough for UI template matching without the cost of a full-resolution
// search, and deterministic (no external CV dependency needed beyond
// decoding, which golang.org/x/image provides).
func slidingMatch(frame []byte, fw, fh int, tmpl []byte, tw, th int, x1, y1, x2, y2, threshold float64) (found bool, bx, by, confidence float64) {
	if tw == 0 || th == 0 || tw > fw || th > fh {
		return false, 0, 0, 0
	}
	frameGray := rgbToGray(frame, fw, fh)

	roiX1 := clampInt(int(x1*float64(fw)), 0, fw-tw)
	roiY1 := clampInt(int(y1*float64(fh)), 0, fh-th)
	roiX2 := clampInt(int(x2*float64(fw))-tw, roiX1, fw-tw)
	roiY2 := clampInt(int(y2*float64(fh))-th, roiY1, fh-th)

	const stride = 4
	bestScore := -1.0
	bestX, bestY := 0, 0
	for y := roiY1; y <= roiY2; y += stride {
		for x := roiX1; x <= roiX2; x += stride {
			score := similarity(frameGray, fw, x, y, tmpl, tw, th)
			if score > bestScore {
				bestScore = score
				bestX, bestY = x, y
			}
		}
	}
	if bestScore < threshold {
		return false, 0, 0, bestScore
	}
	cx := (float64(bestX) + float64(tw)/2) / float64(fw)
	cy := (float64(bestY) + float64(th)/2) / float64(fh)
	return true, cx, cy, bestScore
}

func similarity(frameGray []byte, fw, ox, oy int, tmpl []byte, tw, th int) float64 {
	var sumDiff int64
	n := int64(tw * th)
	for ty := 0; ty < th; ty++ {
		frow := (oy+ty)*fw + ox
		trow := ty * tw
		for tx := 0; tx < tw; tx++ {
			d := int64(frameGray[frow+tx]) - int64(tmpl[trow+tx])
			if d < 0 {
				d = -d
			}
			sumDiff += d
		}
	}
	meanDiff := float64(sumDiff) / float64(n)
	return 1 - meanDiff/255
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
