// Package rknn runs a YOLOv8-pose model on the Rockchip NPU as a pose
// Estimator.
package rknn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/swdee/go-rknnlite"
	"gocv.io/x/gocv"

	"github.com/swdee/go-posemon"
	"github.com/swdee/go-posemon/logger"
	"github.com/swdee/go-posemon/pose"
	"github.com/swdee/go-posemon/pose/yolo"
)

var (
	// ErrUnknownCore is returned for an NPU core name that is not recognised
	ErrUnknownCore = errors.New("unknown NPU core")
	// ErrModelOutputs is returned when the model does not have the box and
	// keypoint outputs of a YOLOv8-pose model
	ErrModelOutputs = errors.New("model outputs are not YOLOv8-pose")
)

// keyPointOutput is the index of the keypoint tensor, preceded by the three
// stride box tensors
const keyPointOutput = 3

// ParseCore converts a core name to the NPU core mask
func ParseCore(name string) (rknnlite.CoreMask, error) {

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return rknnlite.NPUCoreAuto, nil
	case "0":
		return rknnlite.NPUCore0, nil
	case "1":
		return rknnlite.NPUCore1, nil
	case "2":
		return rknnlite.NPUCore2, nil
	case "0_1":
		return rknnlite.NPUCore01, nil
	case "0_1_2":
		return rknnlite.NPUCore012, nil
	case "skip":
		return rknnlite.NPUSkipSetCore, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownCore, name)
}

// Options configures the Estimator
type Options struct {
	// Model is the RKNN compiled YOLOv8-pose model file
	Model string
	// Core is the NPU core name passed to ParseCore
	Core string
	// BoxThreshold is the minimum person confidence, zero uses the default
	BoxThreshold float32
}

// Estimator runs pose inference on the NPU
type Estimator struct {
	mu  sync.Mutex
	rt  *rknnlite.Runtime
	dec *yolo.Decoder
	// inWidth and inHeight are the model input dimensions
	inWidth  int
	inHeight int
	// lb is rebuilt whenever the frame size changes
	lb      *yolo.Letterbox
	rgb     gocv.Mat
	resized gocv.Mat
	log     logger.Logger
}

// New loads the model onto the NPU
func New(opts Options) (*Estimator, error) {

	core, err := ParseCore(opts.Core)

	if err != nil {
		return nil, err
	}

	rt, err := rknnlite.NewRuntime(opts.Model, core)

	if err != nil {
		return nil, fmt.Errorf("error initializing RKNN runtime: %w", err)
	}

	// box tensors stay int8 and the keypoint tensor is converted from fp16
	rt.SetWantFloat(false)

	if len(rt.OutputAttrs()) <= keyPointOutput {
		rt.Close()
		return nil, fmt.Errorf("%w: %d outputs", ErrModelOutputs, len(rt.OutputAttrs()))
	}

	params := yolo.COCOParams()

	if opts.BoxThreshold > 0 {
		params.BoxThreshold = opts.BoxThreshold
	}

	in := rt.InputAttrs()[0]
	height, width := int(in.Dims[2]), int(in.Dims[3])

	if in.Fmt == rknnlite.TensorNHWC {
		height, width = int(in.Dims[1]), int(in.Dims[2])
	}

	e := &Estimator{
		rt:       rt,
		dec:      yolo.NewDecoder(params),
		inWidth:  width,
		inHeight: height,
		rgb:      gocv.NewMat(),
		resized:  gocv.NewMat(),
		log:      logger.Named("rknn"),
	}

	e.log.Info(context.Background(), "model loaded",
		logger.String("model", opts.Model),
		logger.String("core", opts.Core),
		logger.Int("input_width", width),
		logger.Int("input_height", height),
	)

	return e, nil
}

// Estimate returns the landmarks of the most confident person in img
func (e *Estimator) Estimate(img gocv.Mat) (posemon.Landmarks, bool, error) {

	e.mu.Lock()
	defer e.mu.Unlock()

	if img.Empty() {
		return posemon.Landmarks{}, false, nil
	}

	if e.lb == nil || !e.lb.Fits(img.Cols(), img.Rows()) {
		if e.lb != nil {
			e.lb.Close()
		}

		e.lb = yolo.NewLetterbox(img.Cols(), img.Rows(), e.inWidth, e.inHeight)
	}

	gocv.CvtColor(img, &e.rgb, gocv.ColorBGRToRGB)
	e.lb.Resize(e.rgb, &e.resized)

	outputs, err := e.rt.Inference([]gocv.Mat{e.resized})

	if err != nil {
		return posemon.Landmarks{}, false, fmt.Errorf("runtime inference failed: %w", err)
	}

	defer outputs.Free()

	tensors, err := e.tensors(outputs)

	if err != nil {
		return posemon.Landmarks{}, false, err
	}

	people := e.dec.Decode(tensors, e.lb)
	lms, ok := pose.SelectSubject(people, img.Cols(), img.Rows())

	return lms, ok, nil
}

// tensors views the runtime outputs in the layout the decoder expects
func (e *Estimator) tensors(outputs *rknnlite.Outputs) (yolo.Tensors, error) {

	attrs := e.rt.OutputAttrs()

	if len(outputs.Output) <= keyPointOutput {
		return yolo.Tensors{}, fmt.Errorf("%w: %d outputs", ErrModelOutputs, len(outputs.Output))
	}

	t := yolo.Tensors{
		InputWidth:  e.inWidth,
		InputHeight: e.inHeight,
		Boxes:       make([]yolo.BoxTensor, 0, keyPointOutput),
	}

	for i := 0; i < keyPointOutput; i++ {
		t.Boxes = append(t.Boxes, yolo.BoxTensor{
			Data:  outputs.Output[i].BufInt,
			ZP:    attrs[i].ZP,
			Scale: attrs[i].Scale,
			GridH: int(attrs[i].Dims[2]),
			GridW: int(attrs[i].Dims[3]),
		})
	}

	kp := outputs.Output[keyPointOutput]
	t.KeyPoints = kp.BufFloat

	// int8 quantized keypoint tensor
	if len(t.KeyPoints) == 0 && len(kp.BufInt) > 0 {
		attr := attrs[keyPointOutput]
		t.KeyPoints = make([]float32, len(kp.BufInt))

		for i, q := range kp.BufInt {
			t.KeyPoints[i] = (float32(q) - float32(attr.ZP)) * attr.Scale
		}
	}

	return t, nil
}

// Close releases the NPU runtime
func (e *Estimator) Close() error {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lb != nil {
		e.lb.Close()
	}

	e.rgb.Close()
	e.resized.Close()

	return e.rt.Close()
}
