// Kernel debug tool - runs a single named kernel against a synthetic
// particle fixture and renders its output texture to a PNG for visual
// inspection, without booting a whole orchestrator.
//
// Usage: go run ./cmd/kerneldebug -kernel deposit -out debug.png
package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/gpukernel"
	"github.com/oyin-bo/three-g-sub003/layout"
	"github.com/oyin-bo/three-g-sub003/mesh"
	"github.com/oyin-bo/three-g-sub003/particles"
	"github.com/oyin-bo/three-g-sub003/tree"
)

func main() {
	kernelName := flag.String("kernel", "deposit", "Kernel to inspect: deposit, aggregate, poisson")
	outPath := flag.String("out", "debug.png", "Output PNG path")
	gridSize := flag.Int("grid", 32, "Grid resolution (per axis)")
	slicesPerRow := flag.Int("slices-per-row", 8, "Packed layout slices per row")
	useGPU := flag.Bool("gpu", false, "Round-trip the kernel output through a GPU shader pass before exporting")
	flag.Parse()

	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(64, 64, "Kernel Debug")
	defer rl.CloseWindow()

	p := fixtureParticles()

	tex, err := runKernel(*kernelName, p, *gridSize, *slicesPerRow)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernel %q failed: %v\n", *kernelName, err)
		os.Exit(1)
	}

	if *useGPU {
		gf := gpukernel.NewField(tex.Layout, "shaders/passthrough.fs")
		defer gf.Dispose()
		readback := gf.Dispatch(tex, 0)
		for i := 0; i < len(readback) && i*tex.Channels < len(tex.Data); i++ {
			tex.Data[i*tex.Channels] = readback[i]
		}
	}

	if !exportTexture(tex, *outPath) {
		fmt.Fprintf(os.Stderr, "failed to export image\n")
		os.Exit(1)
	}
	fmt.Printf("Kernel %q rendered to: %s (%dx%d)\n", *kernelName, *outPath, tex.Layout.TexWidth(), tex.Layout.TexHeight())
}

// fixtureParticles builds a small synthetic two-body system for
// single-kernel inspection.
func fixtureParticles() *particles.Set {
	p, err := particles.New(2, 1, 2)
	if err != nil {
		panic(err)
	}
	p.SetPositionMass(0, -2, 0, 0, 10)
	p.SetPositionMass(1, 2, 0, 0, 10)
	return p
}

func runKernel(name string, p *particles.Set, gridSize, slicesPerRow int) (*layout.Texture, error) {
	box := bounds.Box{Min: [3]float32{-8, -8, -8}, Max: [3]float32{8, 8, 8}}
	cellVolume := box.Size()[0] / float32(gridSize)
	cellVolume = cellVolume * cellVolume * cellVolume

	switch name {
	case "deposit":
		d := &mesh.Deposit{Grid: gridSize, SlicesRow: slicesPerRow, Bounds: box, Assignment: mesh.CIC}
		defer d.Dispose()
		if err := d.Run(p); err != nil {
			return nil, err
		}
		return d.Output, nil

	case "aggregate":
		a := &tree.Aggregator{N: gridSize, SlicesRow: slicesPerRow, Bounds: box}
		defer a.Dispose()
		if err := a.Run(p); err != nil {
			return nil, err
		}
		return a.A0, nil

	case "poisson":
		d := &mesh.Deposit{Grid: gridSize, SlicesRow: slicesPerRow, Bounds: box, Assignment: mesh.CIC}
		defer d.Dispose()
		if err := d.Run(p); err != nil {
			return nil, err
		}
		fwd, err := mesh.NewFFT(gridSize, slicesPerRow, cellVolume)
		if err != nil {
			return nil, err
		}
		defer fwd.Dispose()
		fwd.InputReal = d.Output
		if err := fwd.Run(mesh.Forward); err != nil {
			return nil, err
		}
		ps, err := mesh.NewPoisson(gridSize, slicesPerRow, box.Size(), 1.0, mesh.NoSplit, 0, 0, 0, false)
		if err != nil {
			return nil, err
		}
		defer ps.Dispose()
		ps.Input = fwd.Output
		if err := ps.Run(); err != nil {
			return nil, err
		}
		return ps.Output, nil

	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}

// exportTexture renders the first channel of every texel as a heatmap
// image and writes it to path.
func exportTexture(tex *layout.Texture, path string) bool {
	w, h := tex.Layout.TexWidth(), tex.Layout.TexHeight()
	img := rl.GenImageColor(w, h, rl.Black)
	channels := tex.Channels

	minV, maxV := tex.Data[0], tex.Data[0]
	for i := 0; i < w*h; i++ {
		v := tex.Data[i*channels]
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

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := (tex.Data[(y*w+x)*channels] - minV) / span
			rl.ImageDrawPixel(img, int32(x), int32(y), heatColor(v))
		}
	}

	success := rl.ExportImage(*img, path)
	rl.UnloadImage(img)
	return success
}

// heatColor maps a value in [0,1] to a four-stop gradient running from
// dark blue through cyan and amber to white.
func heatColor(v float32) color.RGBA {
	switch {
	case v < 0.25:
		t := v / 0.25
		return color.RGBA{R: uint8(10 + t*30), G: uint8(20 + t*60), B: uint8(60 + t*100), A: 255}
	case v < 0.5:
		t := (v - 0.25) / 0.25
		return color.RGBA{R: uint8(40 + t*20), G: uint8(80 + t*120), B: uint8(160 + t*40), A: 255}
	case v < 0.75:
		t := (v - 0.5) / 0.25
		return color.RGBA{R: uint8(60 + t*140), G: uint8(200 - t*40), B: uint8(200 - t*150), A: 255}
	default:
		t := (v - 0.75) / 0.25
		return color.RGBA{R: uint8(200 + t*55), G: uint8(160 + t*95), B: uint8(50 + t*205), A: 255}
	}
}
