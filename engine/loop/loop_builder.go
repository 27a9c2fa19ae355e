package loop

import "time"

// EventLoopBuilderOption is a functional option for configuring an EventLoop.
type EventLoopBuilderOption func(*eventLoop)

// WithPump sets the platform message pump called once per loop iteration.
// For GLFW this polls window events, which is where resize callbacks are delivered.
//
// Parameters:
//   - pump: the function pumping platform events
//
// Returns:
//   - EventLoopBuilderOption: option function to apply
func WithPump(pump func()) EventLoopBuilderOption {
	return func(l *eventLoop) {
		if pump != nil {
			l.pump = pump
		}
	}
}

// WithFrameLimit caps the refresh rate when presentation does not block on vsync.
// Values <= 0 uncap the loop.
//
// Parameters:
//   - fps: maximum refresh callbacks per second
//
// Returns:
//   - EventLoopBuilderOption: option function to apply
func WithFrameLimit(fps float64) EventLoopBuilderOption {
	return func(l *eventLoop) {
		if fps <= 0 {
			l.frameLimit = 0
			return
		}
		l.frameLimit = time.Duration(float64(time.Second) / fps)
	}
}
