package capture

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

// StreamSpec is the requested capture format.
type StreamSpec struct {
	Width  int
	Height int
	FPS    int
}

// Device is a single capture device. Implementations are not required to be
// safe for concurrent use; the Manager serializes all access.
type Device interface {
	Open(spec StreamSpec) error
	Read() (*Frame, error)
	Close() error
}

// DeviceOpener constructs a Device for a candidate device identifier.
// The returned device is not yet open.
type DeviceOpener func(id int) Device

// GoCVOpener returns a DeviceOpener backed by gocv video capture.
func GoCVOpener() DeviceOpener {
	return func(id int) Device {
		return &videoDevice{deviceID: id}
	}
}

// videoDevice wraps a gocv.VideoCapture handle.
type videoDevice struct {
	deviceID int
	capture  *gocv.VideoCapture
}

func (d *videoDevice) Open(spec StreamSpec) error {
	cap, err := gocv.OpenVideoCapture(d.deviceID)
	if err != nil {
		return err
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(spec.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(spec.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(spec.FPS))

	if !cap.IsOpened() {
		cap.Close()
		return errors.New("device opened but not streaming")
	}

	d.capture = cap
	return nil
}

func (d *videoDevice) Read() (*Frame, error) {
	if d.capture == nil {
		return nil, errors.New("device not open")
	}

	mat := gocv.NewMat()
	if ok := d.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from device")
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &Frame{
		Mat:       &mat,
		Timestamp: time.Now(),
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Channels:  mat.Channels(),
	}, nil
}

func (d *videoDevice) Close() error {
	if d.capture == nil {
		return nil
	}
	err := d.capture.Close()
	d.capture = nil
	return err
}
