// Package mark rasterises the overlay mark and bakes its blur levels.
//
// The host window layer cannot blur a window, so every blur radius the overlay fade can ask for
// is pre-computed here at start-up. Levels are blurred in parallel on a worker pool.
package mark

import (
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
)

// Mark is the rasterised overlay mark and its pre-blurred levels.
type Mark struct {
	// Levels[i] is the mark blurred with radius i*Step. Levels[0] is sharp.
	Levels []*image.NRGBA
	// Step is the blur radius between consecutive levels in pixels.
	Step float64
}

type config struct {
	label     string
	width     int
	height    int
	fontSize  float64
	maxBlur   float64
	levels    int
	workers   int
	fg, badge color.NRGBA
}

// MarkBuilderOption is a functional option applied to Render.
type MarkBuilderOption func(*config)

// WithLabel sets the wordmark text. Defaults to "oxy".
func WithLabel(s string) MarkBuilderOption {
	return func(c *config) { c.label = s }
}

// WithSize sets the mark size in pixels. Defaults to 256x96.
func WithSize(width, height int) MarkBuilderOption {
	return func(c *config) {
		c.width, c.height = max(width, 1), max(height, 1)
	}
}

// WithMaxBlur sets the largest baked blur radius. Defaults to 12.
func WithMaxBlur(radius float64) MarkBuilderOption {
	return func(c *config) { c.maxBlur = max(radius, 0) }
}

// WithLevels sets the number of baked levels including the sharp one. Defaults to 7.
func WithLevels(n int) MarkBuilderOption {
	return func(c *config) { c.levels = max(n, 1) }
}

// WithWorkers sets the blur worker count. Defaults to GOMAXPROCS.
func WithWorkers(n int) MarkBuilderOption {
	return func(c *config) { c.workers = max(n, 1) }
}

// Render draws the mark and bakes its blur levels.
//
// Parameters:
//   - options: variadic list of MarkBuilderOption functions
//
// Returns:
//   - *Mark: the mark
//   - error: an error if the font could not be loaded
func Render(options ...MarkBuilderOption) (*Mark, error) {
	cfg := config{
		label:    "oxy",
		width:    256,
		height:   96,
		fontSize: 56,
		maxBlur:  12,
		levels:   7,
		workers:  runtime.GOMAXPROCS(0),
		fg:       color.NRGBA{R: 0xf4, G: 0xf1, B: 0xea, A: 0xff},
		badge:    color.NRGBA{R: 0x14, G: 0x12, B: 0x1c, A: 0xd8},
	}
	for _, opt := range options {
		opt(&cfg)
	}

	sharp, err := rasterise(cfg)
	if err != nil {
		return nil, err
	}

	m := &Mark{Levels: make([]*image.NRGBA, cfg.levels)}
	if cfg.levels > 1 {
		m.Step = cfg.maxBlur / float64(cfg.levels-1)
	}
	m.Levels[0] = sharp
	if cfg.levels == 1 || m.Step == 0 {
		for i := range m.Levels {
			m.Levels[i] = sharp
		}
		return m, nil
	}

	// Each level is independent; the WaitGroup is the barrier since the pool only
	// reports idle after its idle timeout.
	pool := worker.NewDynamicWorkerPool(cfg.workers, cfg.levels, 250*time.Millisecond)
	var wg sync.WaitGroup
	for i := 1; i < cfg.levels; i++ {
		wg.Add(1)
		level := i
		pool.SubmitTask(worker.Task{
			ID: level,
			Do: func() (any, error) {
				defer wg.Done()
				// imaging takes a Gaussian sigma; a radius covers about three sigmas.
				m.Levels[level] = imaging.Blur(sharp, float64(level)*m.Step/3)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return m, nil
}

func rasterise(cfg config) (*image.NRGBA, error) {
	source, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("mark: load font: %w", err)
	}

	dc := gg.NewContext(cfg.width, cfg.height)
	defer dc.Close()

	w, h := float64(cfg.width), float64(cfg.height)
	dc.SetColor(cfg.badge)
	dc.DrawRoundedRectangle(0, 0, w, h, h/4)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("mark: fill badge: %w", err)
	}

	dc.SetFont(source.Face(cfg.fontSize))
	dc.SetColor(cfg.fg)
	dc.DrawStringAnchored(cfg.label, w/2, h/2, 0.5, 0.35)

	return imaging.Clone(dc.Image()), nil
}

// Level returns the baked level closest to the blur radius.
//
// Parameters:
//   - blur: the blur radius in pixels
//
// Returns:
//   - *image.NRGBA: the level
func (m *Mark) Level(blur float64) *image.NRGBA {
	if m.Step <= 0 || blur <= 0 {
		return m.Levels[0]
	}
	i := int(blur/m.Step + 0.5)
	return m.Levels[min(i, len(m.Levels)-1)]
}

// Frame returns the mark for an overlay style at the given size: the nearest blur level,
// scaled with Catmull-Rom and with the style's opacity multiplied into alpha.
//
// Parameters:
//   - style: the overlay style
//   - size: the output size
//
// Returns:
//   - *image.NRGBA: the frame
func (m *Mark) Frame(style common.OverlayStyle, size common.Size) *image.NRGBA {
	size = size.AtLeastOne()
	src := m.Level(style.Blur)
	dst := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	alpha := common.Clamp(style.Opacity, 0, 1)
	if alpha < 1 {
		for i := 3; i < len(dst.Pix); i += 4 {
			dst.Pix[i] = uint8(float64(dst.Pix[i])*alpha + 0.5)
		}
	}
	return dst
}
