package kernel

// StateGuard saves GPU pipeline state (framebuffer, viewport, program,
// vertex array, blend, depth) on construction and restores it when Restore
// is called, so that callers may invoke kernels in any order without
// coupling through global GPU state. The CPU-computable kernel
// core in this module never touches real GPU state; NullStateGuard is the
// no-op implementation for that case. No package in this module provides
// a StateGuard that saves and restores real GPU state.
type StateGuard interface {
	Restore()
}

// nullStateGuard is a StateGuard that does nothing, appropriate for
// kernels that compute directly on layout.Texture buffers with no live GPU
// context.
type nullStateGuard struct{}

func (nullStateGuard) Restore() {}

// NullStateGuard is the no-op StateGuard for CPU-computed kernels.
var NullStateGuard StateGuard = nullStateGuard{}
