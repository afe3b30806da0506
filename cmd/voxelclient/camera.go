package main

import (
	"math"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// camera is a Y-up FPS-style camera, adapted from the teacher's
// core.CameraState for this module's Y-up world (voxel.ChunkCoord.Y is
// vertical) instead of the teacher's Z-up convention.
type camera struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	Speed       float32
	Sensitivity float32
}

func newCamera() *camera {
	return &camera{
		Position:    mgl32.Vec3{0, 80, 0},
		Yaw:         0,
		Pitch:       0,
		Speed:       20.0,
		Sensitivity: 0.003,
	}
}

const maxPitch = 1.5533 // ~89 degrees, avoids gimbal lock at the poles

func (c *camera) forward() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
	}
}

func (c *camera) right() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

func (c *camera) up() mgl32.Vec3 {
	return c.right().Cross(c.forward())
}

// look applies a mouse-delta rotation, clamping pitch to keep forward()
// and up() well-defined.
func (c *camera) look(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch -= dy * c.Sensitivity
	if c.Pitch > maxPitch {
		c.Pitch = maxPitch
	}
	if c.Pitch < -maxPitch {
		c.Pitch = -maxPitch
	}
}

// move applies WASD + space/ctrl translation for one frame of dt seconds.
func (c *camera) move(window *glfw.Window, dt float32) {
	dist := c.Speed * dt
	f := c.forward()
	r := c.right()

	if window.GetKey(glfw.KeyW) == glfw.Press {
		c.Position = c.Position.Add(f.Mul(dist))
	}
	if window.GetKey(glfw.KeyS) == glfw.Press {
		c.Position = c.Position.Sub(f.Mul(dist))
	}
	if window.GetKey(glfw.KeyD) == glfw.Press {
		c.Position = c.Position.Add(r.Mul(dist))
	}
	if window.GetKey(glfw.KeyA) == glfw.Press {
		c.Position = c.Position.Sub(r.Mul(dist))
	}
	if window.GetKey(glfw.KeySpace) == glfw.Press {
		c.Position = c.Position.Add(mgl32.Vec3{0, dist, 0})
	}
	if window.GetKey(glfw.KeyLeftControl) == glfw.Press {
		c.Position = c.Position.Sub(mgl32.Vec3{0, dist, 0})
	}
}
