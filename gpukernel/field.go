// Package gpukernel layers a GPU shader/render-texture dispatch on top of
// the CPU-computable kernel core: a kernel's packed float output is
// uploaded as a texture, run through a fragment shader pass, and read
// back to CPU, the same upload/shader/readback shape used by the
// engine's procedural resource and flow field generators, applied here to
// an existing mesh/tree kernel's output reprocessed through a live GPU
// context.
package gpukernel

import (
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/oyin-bo/three-g-sub003/layout"
)

// Field round-trips a packed texture's first channel through a GPU
// shader pass. Values are normalized to [0,1] for the uint8 readback
// channel and rescaled back on the way out, same as GPUResourceField's
// R-channel convention.
type Field struct {
	shader  rl.Shader
	target  rl.RenderTexture2D
	timeLoc int32

	width, height int
	data          []float32
}

// NewField creates a GPU dispatch context sized for the given packed
// layout. shaderPath is a fragment shader that samples the "source"
// uniform texture and a "time" uniform float, the same uniform set
// GPUResourceField/GPUFlowField bind.
func NewField(p layout.Packed, shaderPath string) *Field {
	w, h := p.TexWidth(), p.TexHeight()
	f := &Field{width: w, height: h, data: make([]float32, w*h)}
	f.shader = rl.LoadShader("", shaderPath)
	f.timeLoc = rl.GetShaderLocation(f.shader, "time")
	f.target = rl.LoadRenderTexture(int32(w), int32(h))
	return f
}

// Dispatch uploads tex's first channel as a source texture, draws it
// through the shader into the render target, and reads the result back.
// Returns the readback cache, owned by f; copy it before the next call
// if the caller needs to retain it.
func (f *Field) Dispatch(tex *layout.Texture, simTime float32) []float32 {
	minV, maxV := tex.Data[0], tex.Data[0]
	for i := 0; i < f.width*f.height; i++ {
		v := tex.Data[i*tex.Channels]
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	span := maxV - minV
	if span == 0 {
		span = 1
	}

	pixels := make([]uint8, f.width*f.height*4)
	for i := 0; i < f.width*f.height; i++ {
		v := (tex.Data[i*tex.Channels] - minV) / span
		pixels[i*4+0] = uint8(v * 255)
		pixels[i*4+3] = 255
	}

	img := rl.Image{
		Data:    unsafe.Pointer(&pixels[0]),
		Width:   int32(f.width),
		Height:  int32(f.height),
		Mipmaps: 1,
		Format:  rl.UncompressedR8g8b8a8,
	}
	source := rl.LoadTextureFromImage(&img)
	defer rl.UnloadTexture(source)

	sourceLoc := rl.GetShaderLocation(f.shader, "source")

	rl.BeginTextureMode(f.target)
	rl.ClearBackground(rl.Black)
	rl.SetShaderValue(f.shader, f.timeLoc, []float32{simTime}, rl.ShaderUniformFloat)
	rl.SetShaderValueTexture(f.shader, sourceLoc, source)
	rl.BeginShaderMode(f.shader)
	rl.DrawRectangle(0, 0, int32(f.width), int32(f.height), rl.White)
	rl.EndShaderMode()
	rl.EndTextureMode()

	readback := rl.LoadImageFromTexture(f.target.Texture)
	defer rl.UnloadImage(readback)
	colors := rl.LoadImageColors(readback)
	defer rl.UnloadImageColors(colors)

	for i := 0; i < f.width*f.height; i++ {
		f.data[i] = minV + float32(colors[i].R)/255.0*span
	}
	return f.data
}

// Dispose frees the shader and render target. Idempotent is not
// guaranteed by raylib's Unload* calls, so callers must not call twice.
func (f *Field) Dispose() {
	rl.UnloadShader(f.shader)
	rl.UnloadRenderTexture(f.target)
}
