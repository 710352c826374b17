//go:build gocv

package main

import "github.com/menta2k/photobooth/pkg/camera"

func init() {
	webcamOpener = camera.OpenWebcam
}
