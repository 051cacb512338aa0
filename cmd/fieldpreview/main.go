// Field preview tool - interactive visualization of the PM (Mesh) or
// Barnes-Hut (Tree) orchestrator with live parameter sliders.
//
// Usage: go run ./cmd/fieldpreview
package main

import (
	"fmt"
	"image/color"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/gravity"
	"github.com/oyin-bo/three-g-sub003/mesh"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
)

// scenario identifies one of the test fixture initial conditions: a
// symmetric two-body pair, a uniform 3x3x3 grid, and a ring approximating
// a Gaussian-blob cluster.
type scenario int

const (
	scenarioTwoBody scenario = iota
	scenarioUniformGrid
	scenarioGaussianBlob
)

// orchestrator is the subset of gravity.Mesh/gravity.Tree this preview
// drives; a type switch recovers Bounds() since the two expose it under
// different names (Tree's is ReducedBounds, informational only).
type orchestrator interface {
	Step() error
	CurrentPositions() []float32
	Dispose()
}

func orchestratorBounds(o orchestrator) bounds.Box {
	switch v := o.(type) {
	case *gravity.Mesh:
		return v.Bounds()
	case *gravity.Tree:
		return v.ReducedBounds()
	default:
		return bounds.Box{}
	}
}

func main() {
	rl.InitWindow(windowWidth, windowHeight, "Field Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	theta := float32(0.6)
	softening := float32(0.1)
	split := mesh.Gaussian
	active := scenarioTwoBody
	useTree := false
	running := false

	gridSize := 64
	img := rl.GenImageColor(gridSize, gridSize, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	var o orchestrator = mustBuildMesh(active, softening, split)
	defer o.Dispose()

	densityGrid := make([]float32, gridSize*gridSize)
	rebuild := func() {
		o.Dispose()
		if useTree {
			o = mustBuildTree(active, theta, softening)
		} else {
			o = mustBuildMesh(active, softening, split)
		}
	}

	for !rl.WindowShouldClose() {
		if running {
			if err := o.Step(); err != nil {
				running = false
			}
		}

		projectDensity(o, densityGrid, gridSize)
		updateTexture(texture, densityGrid, gridSize)

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: float32(gridSize), Height: float32(gridSize)},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)
		drawParticles(o, gridSize)

		statsY := int32(previewSize + 25)
		rl.DrawText(fmt.Sprintf("Particles: %d", len(o.CurrentPositions())/4), 15, statsY, 16, rl.DarkGray)

		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Field Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		pipelineLabel := "Pipeline: Mesh (PM)"
		if useTree {
			pipelineLabel = "Pipeline: Tree (Barnes-Hut)"
		}
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 250, Height: 30}, pipelineLabel) {
			useTree = !useTree
			rebuild()
		}
		panelY += 40

		if useTree {
			rl.DrawText("Theta (opening angle)", int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			newTheta := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"0.1", "1.2",
				theta, 0.1, 1.2,
			)
			rl.DrawText(fmt.Sprintf("%.2f", theta), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if newTheta != theta {
				theta = newTheta
				rebuild()
			}
			panelY += 35
		}

		rl.DrawText("Softening", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newSoftening := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0.01", "1.0",
			softening, 0.01, 1.0,
		)
		rl.DrawText(fmt.Sprintf("%.3f", softening), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newSoftening != softening {
			softening = newSoftening
			rebuild()
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(running, "Pause", "Run")) {
			running = !running
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Step") {
			o.Step()
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 250, Height: 30}, "Scenario: Two-Body") {
			active = scenarioTwoBody
			rebuild()
		}
		panelY += 35
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 250, Height: 30}, "Scenario: Uniform Grid") {
			active = scenarioUniformGrid
			rebuild()
		}
		panelY += 35
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 250, Height: 30}, "Scenario: Gaussian Blob") {
			active = scenarioGaussianBlob
			rebuild()
		}
		panelY += 45

		if !useTree {
			switchLabel := "Split: Gaussian"
			if split == mesh.SharpCutoff {
				switchLabel = "Split: Sharp"
			} else if split == mesh.NoSplit {
				switchLabel = "Split: None"
			}
			if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 250, Height: 30}, switchLabel) {
				switch split {
				case mesh.Gaussian:
					split = mesh.SharpCutoff
				case mesh.SharpCutoff:
					split = mesh.NoSplit
				default:
					split = mesh.Gaussian
				}
				rebuild()
			}
		}

		rl.EndDrawing()
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

// sceneParticles builds the position/velocity arrays for one of the
// fixed initial-condition fixtures.
func sceneParticles(s scenario) ([]float32, []float32, int) {
	switch s {
	case scenarioUniformGrid:
		var pos []float32
		for _, dx := range []float32{-4, 0, 4} {
			for _, dy := range []float32{-4, 0, 4} {
				for _, dz := range []float32{-4, 0, 4} {
					pos = append(pos, dx, dy, dz, 1)
				}
			}
		}
		return pos, make([]float32, len(pos)), 27

	case scenarioGaussianBlob:
		var pos []float32
		n := 64
		for i := 0; i < n; i++ {
			angle := float32(i) * 0.39
			r := float32(1 + i%8)
			pos = append(pos, r*cos32(angle), r*sin32(angle), 0, 1)
		}
		return pos, make([]float32, len(pos)), n

	default: // two-body
		return []float32{
			-3, 0, 0, 10,
			3, 0, 0, 10,
		}, make([]float32, 8), 2
	}
}

// cos32/sin32 are float32 wrappers over math.Cos/math.Sin for the ring
// placement, whose angles run well past 2*pi.
func cos32(x float32) float32 {
	return float32(math.Cos(float64(x)))
}

func sin32(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

func mustBuildMesh(s scenario, softening float32, split mesh.SplitMode) *gravity.Mesh {
	pos, vel, count := sceneParticles(s)
	cfg := gravity.Config{
		Positions:        pos,
		Velocities:       vel,
		ParticleCount:    count,
		TexWidth:         count,
		TexHeight:        1,
		WorldBounds:      bounds.Box{Min: [3]float32{-16, -16, -16}, Max: [3]float32{16, 16, 16}},
		Dt:               0.01,
		GravityStrength:  1,
		Softening:        softening,
		Integrator:       gravity.KDKIntegrator,
		MeshAssignment:   mesh.CIC,
		MeshGridSize:     32,
		MeshSlicesPerRow: 8,
		MeshSplit:        split,
		MeshSplitSigma:   1.5,
		NearFieldRadius:  2,
	}
	m, err := gravity.NewMesh(cfg)
	if err != nil {
		panic(err)
	}
	return m
}

func mustBuildTree(s scenario, theta, softening float32) *gravity.Tree {
	pos, vel, count := sceneParticles(s)
	cfg := gravity.Config{
		Positions:          pos,
		Velocities:         vel,
		ParticleCount:      count,
		TexWidth:           count,
		TexHeight:          1,
		WorldBounds:        bounds.Box{Min: [3]float32{-16, -16, -16}, Max: [3]float32{16, 16, 16}},
		Dt:                 0.01,
		GravityStrength:    1,
		Softening:          softening,
		Integrator:         gravity.KDKIntegrator,
		Theta:              theta,
		TreeNumLevels:      6,
		TreeGridSize:       32,
		TreeSlicesPerRow:   8,
		BoundsUpdatePeriod: 4,
		NearFieldRadius:    1,
	}
	t, err := gravity.NewTree(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// projectDensity accumulates particle mass onto a 2D (x,y) grid for the
// preview heatmap, independent of the orchestrator's own Deposit kernel.
func projectDensity(o orchestrator, grid []float32, gridSize int) {
	for i := range grid {
		grid[i] = 0
	}
	b := orchestratorBounds(o)
	size := b.Size()
	pos := o.CurrentPositions()
	for i := 0; i+3 < len(pos); i += 4 {
		mass := pos[i+3]
		if mass <= 0 {
			continue
		}
		u := (pos[i] - b.Min[0]) / size[0]
		v := (pos[i+1] - b.Min[1]) / size[1]
		gx := int(u * float32(gridSize))
		gy := int(v * float32(gridSize))
		if gx < 0 || gx >= gridSize || gy < 0 || gy >= gridSize {
			continue
		}
		grid[gy*gridSize+gx] += mass
	}
}

func drawParticles(o orchestrator, gridSize int) {
	b := orchestratorBounds(o)
	size := b.Size()
	pos := o.CurrentPositions()
	for i := 0; i+3 < len(pos); i += 4 {
		if pos[i+3] <= 0 {
			continue
		}
		u := (pos[i] - b.Min[0]) / size[0]
		v := (pos[i+1] - b.Min[1]) / size[1]
		px := 10 + int32(u*previewSize)
		py := 10 + int32(v*previewSize)
		rl.DrawCircle(px, py, 3, rl.Red)
	}
}

// updateTexture maps a density grid, normalized to its maximum, to a
// linear gradient from dark blue (10,20,60) to light blue (70,140,240).
func updateTexture(texture rl.Texture2D, grid []float32, size int) {
	var maxV float32
	for _, v := range grid {
		if v > maxV {
			maxV = v
		}
	}
	if maxV == 0 {
		maxV = 1
	}

	pixels := make([]color.RGBA, size*size)
	for i, v := range grid {
		t := v / maxV
		if t > 1 {
			t = 1
		}
		r := uint8(10 + t*60)
		g := uint8(20 + t*120)
		b := uint8(60 + t*180)
		pixels[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	rl.UpdateTexture(texture, pixels)
}
