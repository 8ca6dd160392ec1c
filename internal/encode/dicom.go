package encode

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/randimage/internal/pixel"
)

const (
	explicitVRLittleEndian = "1.2.840.10008.1.2.1"
	secondaryCaptureClass  = "1.2.840.10008.5.1.4.1.1.7"
)

// dicomEncoder writes a single-frame Secondary Capture object. Identifiers
// are derived from the seeds so identical requests produce identical files.
type dicomEncoder struct {
	seed       uint64
	seriesSeed uint64 // study and series UIDs
	instance   int
}

func newDICOMEncoder(opts Options) dicomEncoder {
	e := dicomEncoder{seed: opts.Seed, seriesSeed: opts.Seed, instance: 1}
	if opts.Instance > 0 {
		e.seriesSeed = opts.SeriesSeed
		e.instance = opts.Instance
	}
	return e
}

func (e dicomEncoder) Encode(w io.Writer, buf *pixel.Buffer) error {
	if err := checkBuffer(DICOM, buf); err != nil {
		return err
	}

	pixelData, err := dicomPixelData(buf)
	if err != nil {
		return err
	}

	photometric := "MONOCHROME2"
	if buf.Mode == pixel.RGB {
		photometric = "RGB"
	}
	bits := int(buf.Depth)
	sopInstanceUID := seedUID(e.seed, 3)

	// ascending tag order
	elements := []*dicom.Element{
		mustNewElement(tag.MediaStorageSOPClassUID, []string{secondaryCaptureClass}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(tag.TransferSyntaxUID, []string{explicitVRLittleEndian}),
		mustNewElement(tag.SOPClassUID, []string{secondaryCaptureClass}),
		mustNewElement(tag.SOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(tag.Modality, []string{"OT"}),
		mustNewElement(tag.PatientName, []string{"RANDOM^IMAGE"}),
		mustNewElement(tag.PatientID, []string{fmt.Sprintf("%016X", e.seriesSeed)}),
		mustNewElement(tag.StudyInstanceUID, []string{seedUID(e.seriesSeed, 1)}),
		mustNewElement(tag.SeriesInstanceUID, []string{seedUID(e.seriesSeed, 2)}),
		mustNewElement(tag.SeriesNumber, []string{"1"}),
		mustNewElement(tag.InstanceNumber, []string{strconv.Itoa(e.instance)}),
		mustNewElement(tag.SamplesPerPixel, []int{buf.Mode.Channels()}),
		mustNewElement(tag.PhotometricInterpretation, []string{photometric}),
	}
	if buf.Mode == pixel.RGB {
		// color-by-pixel, same interleaving as the buffer
		elements = append(elements, mustNewElement(tag.PlanarConfiguration, []int{0}))
	}
	elements = append(elements,
		mustNewElement(tag.Rows, []int{buf.Height}),
		mustNewElement(tag.Columns, []int{buf.Width}),
		mustNewElement(tag.BitsAllocated, []int{bits}),
		mustNewElement(tag.BitsStored, []int{bits}),
		mustNewElement(tag.HighBit, []int{bits - 1}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
	)
	elements = append(elements, mustNewElement(tag.PixelData, pixelData))

	if err := dicom.Write(w, dicom.Dataset{Elements: elements}); err != nil {
		return fmt.Errorf("dicom: %w", err)
	}
	return nil
}

// dicomPixelData wraps the buffer samples in a native frame.
func dicomPixelData(buf *pixel.Buffer) (dicom.PixelDataInfo, error) {
	pixels := buf.Width * buf.Height
	samples := buf.Mode.Channels()

	var fr *frame.Frame
	switch buf.Depth {
	case pixel.Depth8:
		nf := frame.NewNativeFrame[uint8](8, buf.Height, buf.Width, pixels, samples)
		nf.RawData = append([]uint8(nil), buf.Pix...)
		fr = &frame.Frame{Encapsulated: false, NativeData: nf}
	case pixel.Depth16:
		nf := frame.NewNativeFrame[uint16](16, buf.Height, buf.Width, pixels, samples)
		raw := make([]uint16, len(buf.Pix)/2)
		for i := range raw {
			raw[i] = binary.BigEndian.Uint16(buf.Pix[2*i:])
		}
		nf.RawData = raw
		fr = &frame.Frame{Encapsulated: false, NativeData: nf}
	default:
		return dicom.PixelDataInfo{}, fmt.Errorf("%w: depth %d", ErrEncoding, buf.Depth)
	}
	return dicom.PixelDataInfo{Frames: []*frame.Frame{fr}}, nil
}

// seedUID builds a UID under the 2.25 root from the seed and a role index.
func seedUID(seed uint64, role uint64) string {
	return fmt.Sprintf("2.25.%d", splitmix(seed^(role*0x9e3779b97f4a7c15)))
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// mustNewElement creates a new DICOM element, panicking on error.
func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}
