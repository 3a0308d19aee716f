package main

import (
	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/brep/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	width  = 640
	height = 480
)

type viewConfig struct {
	// what position (point) to look at
	lookat r3.Vec
	// up direction of the camera
	up r3.Vec
	// position of the camera
	eyepos    r3.Vec
	near, far float64
}

var defaultView = viewConfig{
	up:     r3.Vec{Z: 1},
	eyepos: d3.Elem(2.4), // iso view.
	near:   1,
	far:    10,
}

func stlToPNG(stlName, outputname string, view viewConfig) error {
	mesh, err := fauxgl.LoadSTL(stlName)
	if err != nil {
		return err
	}
	const (
		scale = 2  // supersampling
		fovy  = 30 // vertical field of view in degrees
	)

	var (
		eye    = fauxgl.V(view.eyepos.X, view.eyepos.Y, view.eyepos.Z)
		center = fauxgl.V(view.lookat.X, view.lookat.Y, view.lookat.Z)
		up     = fauxgl.V(view.up.X, view.up.Y, view.up.Z)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)

	// fit mesh in a bi-unit cube centered at the origin
	mesh.BiUnitCube()
	context := fauxgl.NewContext(width*scale, height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(width) / float64(height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.near, view.far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(mesh)
	// downsample image for antialiasing
	image := context.Image()
	image = resize.Resize(uint(width), uint(height), image, resize.Bilinear)
	return fauxgl.SavePNG(outputname, image)
}
