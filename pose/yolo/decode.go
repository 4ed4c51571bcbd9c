// Package yolo decodes the output tensors of a quantized YOLOv8-pose model
// into scored people with COCO keypoints.
package yolo

import (
	"math"
	"sort"

	"github.com/swdee/go-posemon/pose"
)

const (
	// dflLen is the number of bins each box side is distributed over
	dflLen = 16
	// locChannels are the box tensor channels holding the four box sides
	locChannels = 4 * dflLen
)

// Params configures decoding
type Params struct {
	// BoxThreshold is the minimum person confidence
	BoxThreshold float32
	// NMSThreshold is the maximum IoU allowed between two kept people
	NMSThreshold float32
	// MaxPeople caps the number of people returned per frame
	MaxPeople int
	// KeyPoints is the number of keypoints per person the model outputs
	KeyPoints int
}

// COCOParams returns the parameters for a single class COCO pose model
func COCOParams() Params {
	return Params{
		BoxThreshold: 0.5,
		NMSThreshold: 0.4,
		MaxPeople:    64,
		KeyPoints:    17,
	}
}

// BoxTensor is one stride's quantized output of box distributions followed
// by the person confidence, laid out channel first over a GridH x GridW grid
type BoxTensor struct {
	Data  []int8
	ZP    int32
	Scale float32
	GridH int
	GridW int
}

// Tensors are the model outputs for one frame
type Tensors struct {
	// InputWidth and InputHeight are the model input dimensions
	InputWidth  int
	InputHeight int
	// Boxes holds one tensor per stride in output order
	Boxes []BoxTensor
	// KeyPoints holds x, y and score per keypoint across all anchors of all
	// strides, laid out as [keypoint][x|y|score][anchor]
	KeyPoints []float32
}

// anchors returns the total number of grid cells across all strides
func (t Tensors) anchors() int {

	n := 0

	for _, b := range t.Boxes {
		n += b.GridH * b.GridW
	}

	return n
}

// candidate is a detection above the confidence threshold before NMS
type candidate struct {
	x, y, w, h float32
	score      float32
	anchor     int
}

// Decoder turns model outputs into people
type Decoder struct {
	Params Params
}

// NewDecoder returns a Decoder using the given parameters
func NewDecoder(p Params) *Decoder {
	return &Decoder{Params: p}
}

// Decode returns the people detected in the model outputs with keypoints
// mapped back onto the source frame by lb
func (d *Decoder) Decode(t Tensors, lb *Letterbox) []pose.Person {

	var cands []candidate
	index := 0

	for _, b := range t.Boxes {
		if b.GridH == 0 {
			continue
		}

		stride := t.InputHeight / b.GridH
		cands = append(cands, d.stride(b, stride, index)...)
		index += b.GridH * b.GridW
	}

	if len(cands) == 0 {
		return nil
	}

	kept := nms(cands, d.Params.NMSThreshold)
	total := t.anchors()

	people := make([]pose.Person, 0, len(kept))

	for _, c := range kept {
		if d.Params.MaxPeople > 0 && len(people) >= d.Params.MaxPeople {
			break
		}

		kps := make([]pose.Keypoint, d.Params.KeyPoints)

		for j := range kps {
			base := j * 3 * total

			if base+2*total+c.anchor >= len(t.KeyPoints) {
				break
			}

			x, y := lb.ToSource(t.KeyPoints[base+c.anchor],
				t.KeyPoints[base+total+c.anchor])

			kps[j] = pose.Keypoint{
				X:     x,
				Y:     y,
				Score: t.KeyPoints[base+2*total+c.anchor],
			}
		}

		people = append(people, pose.Person{Score: c.score, Keypoints: kps})
	}

	return people
}

// stride collects the candidates of a single stride's grid
func (d *Decoder) stride(b BoxTensor, stride, index int) []candidate {

	var cands []candidate

	cells := b.GridH * b.GridW
	thres := quantize(unsigmoid(d.Params.BoxThreshold), b.ZP, b.Scale)
	loc := make([]float32, locChannels)

	for h := 0; h < b.GridH; h++ {
		for w := 0; w < b.GridW; w++ {
			cell := h*b.GridW + w
			offset := locChannels*cells + cell

			if offset >= len(b.Data) || b.Data[offset] < thres {
				continue
			}

			for i := 0; i < locChannels; i++ {
				loc[i] = dequantize(b.Data[i*cells+cell], b.ZP, b.Scale)
			}

			// distance from the cell centre to left, top, right and bottom
			var side [4]float32

			for s := 0; s < 4; s++ {
				bins := loc[s*dflLen : (s+1)*dflLen]
				softmax(bins)

				for i, p := range bins {
					side[s] += p * float32(i)
				}
			}

			x1 := (float32(w) + 0.5 - side[0]) * float32(stride)
			y1 := (float32(h) + 0.5 - side[1]) * float32(stride)
			x2 := (float32(w) + 0.5 + side[2]) * float32(stride)
			y2 := (float32(h) + 0.5 + side[3]) * float32(stride)

			cands = append(cands, candidate{
				x:      x1,
				y:      y1,
				w:      x2 - x1,
				h:      y2 - y1,
				score:  sigmoid(dequantize(b.Data[offset], b.ZP, b.Scale)),
				anchor: index + cell,
			})
		}
	}

	return cands
}

// nms keeps the highest scoring candidates dropping any that overlap a kept
// one by more than threshold
func nms(cands []candidate, threshold float32) []candidate {

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	suppressed := make([]bool, len(cands))
	kept := make([]candidate, 0, len(cands))

	for i := range cands {
		if suppressed[i] {
			continue
		}

		kept = append(kept, cands[i])

		for j := i + 1; j < len(cands); j++ {
			if !suppressed[j] && iou(cands[i], cands[j]) > threshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}

// iou is the intersection over union of two boxes
func iou(a, b candidate) float32 {

	w := math.Max(0, math.Min(float64(a.x+a.w), float64(b.x+b.w))-math.Max(float64(a.x), float64(b.x)))
	h := math.Max(0, math.Min(float64(a.y+a.h), float64(b.y+b.h))-math.Max(float64(a.y), float64(b.y)))
	inter := float32(w * h)

	union := a.w*a.h + b.w*b.h - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}

func dequantize(q int8, zp int32, scale float32) float32 {
	return (float32(q) - float32(zp)) * scale
}

func quantize(f float32, zp int32, scale float32) int8 {

	v := f/scale + float32(zp)

	switch {
	case v <= -128:
		return -128
	case v >= 127:
		return 127
	}

	return int8(v)
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func unsigmoid(y float32) float32 {
	return float32(-math.Log(1/float64(y) - 1))
}

// softmax normalizes v in place
func softmax(v []float32) {

	max := v[0]

	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}

	var sum float32

	for i, x := range v {
		v[i] = float32(math.Exp(float64(x - max)))
		sum += v[i]
	}

	for i := range v {
		v[i] /= sum
	}
}
