package domain

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"maps"
	"time"
)

// Record is one row of driving data captured from the Bus.
type Record struct {
	Index   int
	Session string
	Time    time.Time
	Values  map[string]Value
}

// RecordDocument is the JSON shape stores persist. Scalars live in Values;
// frames and buffers are kept apart so a store can put them out of band.
type RecordDocument struct {
	Index   int               `json:"index"`
	Session string            `json:"session,omitempty"`
	Time    time.Time         `json:"time"`
	Values  map[string]any    `json:"values"`
	Frames  map[string]string `json:"frames,omitempty"`
	Buffers map[string][]byte `json:"buffers,omitempty"`
}

// FrameSaver stores a frame and returns the reference kept in the document.
type FrameSaver func(key string, f *Frame) (string, error)

// FrameLoader resolves a reference written by a FrameSaver.
type FrameLoader func(key, ref string) (*Frame, error)

// Document converts r for persistence, handing each frame to save.
func (r Record) Document(save FrameSaver) (RecordDocument, error) {
	doc := RecordDocument{
		Index:   r.Index,
		Session: r.Session,
		Time:    r.Time,
		Values:  make(map[string]any, len(r.Values)),
	}
	for k, v := range r.Values {
		switch v.Kind() {
		case KindFrame:
			f, _ := v.Frame()
			ref, err := save(k, f)
			if err != nil {
				return RecordDocument{}, fmt.Errorf("save frame %s: %w", k, err)
			}
			if doc.Frames == nil {
				doc.Frames = make(map[string]string)
			}
			doc.Frames[k] = ref
		case KindBuffer:
			b, _ := v.Buffer()
			if doc.Buffers == nil {
				doc.Buffers = make(map[string][]byte)
			}
			doc.Buffers[k] = b
		default:
			doc.Values[k] = v.Any()
		}
	}
	return doc, nil
}

// Record rebuilds a record, resolving frame references with load.
func (d RecordDocument) Record(load FrameLoader) (Record, error) {
	r := Record{
		Index:   d.Index,
		Session: d.Session,
		Time:    d.Time,
		Values:  make(map[string]Value, len(d.Values)+len(d.Frames)+len(d.Buffers)),
	}
	for k, x := range d.Values {
		v, err := FromAny(x)
		if err != nil {
			return Record{}, fmt.Errorf("value %s: %w", k, err)
		}
		r.Values[k] = v
	}
	for k, ref := range d.Frames {
		f, err := load(k, ref)
		if err != nil {
			return Record{}, fmt.Errorf("load frame %s: %w", k, err)
		}
		r.Values[k] = Image(f)
	}
	for k, b := range d.Buffers {
		r.Values[k] = Buffer(b)
	}
	return r, nil
}

// Clone copies the record's value map.
func (r Record) Clone() Record {
	r.Values = maps.Clone(r.Values)
	return r
}

// EncodePNG encodes the frame losslessly.
func (f *Frame) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, f.ToImage()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePNG decodes a PNG into an RGB frame, or a grayscale one if the image
// is grayscale.
func DecodePNG(data []byte) (*Frame, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if g, ok := img.(*image.Gray); ok {
		w, h := g.Bounds().Dx(), g.Bounds().Dy()
		f := NewFrame(w, h, 1)
		for y := 0; y < h; y++ {
			copy(f.Pix[y*w:(y+1)*w], g.Pix[y*g.Stride:y*g.Stride+w])
		}
		return f, nil
	}
	return FrameFromImage(img), nil
}
