package encode

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/randimage/internal/pixel"
)

func parseDICOM(t *testing.T, data []byte) dicom.Dataset {
	t.Helper()
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatalf("failed to parse DICOM output: %v", err)
	}
	return ds
}

func intValue(t *testing.T, ds dicom.Dataset, tg tag.Tag) int {
	t.Helper()
	elem, err := ds.FindElementByTag(tg)
	if err != nil {
		t.Fatalf("tag %v missing: %v", tg, err)
	}
	v, ok := elem.Value.GetValue().([]int)
	if !ok || len(v) == 0 {
		t.Fatalf("tag %v has no int value: %v", tg, elem.Value)
	}
	return v[0]
}

func stringValue(t *testing.T, ds dicom.Dataset, tg tag.Tag) string {
	t.Helper()
	elem, err := ds.FindElementByTag(tg)
	if err != nil {
		t.Fatalf("tag %v missing: %v", tg, err)
	}
	v, ok := elem.Value.GetValue().([]string)
	if !ok || len(v) == 0 {
		t.Fatalf("tag %v has no string value: %v", tg, elem.Value)
	}
	return strings.TrimSpace(v[0])
}

func TestDICOM_Attributes(t *testing.T) {
	tests := []struct {
		mode        pixel.ColorMode
		depth       pixel.Depth
		samples     int
		photometric string
	}{
		{pixel.Grayscale, pixel.Depth8, 1, "MONOCHROME2"},
		{pixel.Grayscale, pixel.Depth16, 1, "MONOCHROME2"},
		{pixel.RGB, pixel.Depth8, 3, "RGB"},
		{pixel.RGB, pixel.Depth16, 3, "RGB"},
	}
	for _, tt := range tests {
		t.Run(tt.photometric, func(t *testing.T) {
			buf := synth(t, 8, 6, tt.mode, tt.depth, 12)
			data, err := Encode(buf, DICOM, Options{Seed: 12})
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			ds := parseDICOM(t, data)

			if got := intValue(t, ds, tag.Rows); got != 6 {
				t.Errorf("Rows = %d, want 6", got)
			}
			if got := intValue(t, ds, tag.Columns); got != 8 {
				t.Errorf("Columns = %d, want 8", got)
			}
			if got := intValue(t, ds, tag.SamplesPerPixel); got != tt.samples {
				t.Errorf("SamplesPerPixel = %d, want %d", got, tt.samples)
			}
			if got := intValue(t, ds, tag.BitsAllocated); got != int(tt.depth) {
				t.Errorf("BitsAllocated = %d, want %d", got, tt.depth)
			}
			if got := stringValue(t, ds, tag.PhotometricInterpretation); got != tt.photometric {
				t.Errorf("PhotometricInterpretation = %q, want %q", got, tt.photometric)
			}
			if got := stringValue(t, ds, tag.Modality); got != "OT" {
				t.Errorf("Modality = %q, want OT", got)
			}
			if _, err := ds.FindElementByTag(tag.PixelData); err != nil {
				t.Errorf("PixelData missing: %v", err)
			}
		})
	}
}

func TestDICOM_SeedDerivedUIDs(t *testing.T) {
	buf := synth(t, 4, 4, pixel.Grayscale, pixel.Depth8, 3)

	a, err := Encode(buf, DICOM, Options{Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Encode(buf, DICOM, Options{Seed: 3})
	if !bytes.Equal(a, b) {
		t.Error("same seed should produce identical files")
	}

	uidA := stringValue(t, parseDICOM(t, a), tag.SOPInstanceUID)
	c, _ := Encode(buf, DICOM, Options{Seed: 4})
	uidC := stringValue(t, parseDICOM(t, c), tag.SOPInstanceUID)
	if uidA == uidC {
		t.Errorf("different seeds share SOPInstanceUID %s", uidA)
	}
	if !strings.HasPrefix(uidA, "2.25.") || len(uidA) > 64 {
		t.Errorf("SOPInstanceUID %q is not a valid 2.25 UID", uidA)
	}
}

func TestSeedUID_RolesDiffer(t *testing.T) {
	seen := map[string]bool{}
	for role := uint64(1); role <= 3; role++ {
		uid := seedUID(99, role)
		if seen[uid] {
			t.Errorf("role %d repeats UID %s", role, uid)
		}
		seen[uid] = true
	}
}

func TestDICOM_RejectsRGBA(t *testing.T) {
	buf := synth(t, 2, 2, pixel.RGBA, pixel.Depth8, 1)
	if _, err := Encode(buf, DICOM, Options{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}

func TestDICOM_Series(t *testing.T) {
	var studies, series, sops []string
	for i := 1; i <= 3; i++ {
		buf := synth(t, 4, 4, pixel.Grayscale, pixel.Depth8, uint64(50+i))
		data, err := Encode(buf, DICOM, Options{Seed: uint64(50 + i), SeriesSeed: 50, Instance: i})
		if err != nil {
			t.Fatal(err)
		}
		ds := parseDICOM(t, data)
		studies = append(studies, stringValue(t, ds, tag.StudyInstanceUID))
		series = append(series, stringValue(t, ds, tag.SeriesInstanceUID))
		sops = append(sops, stringValue(t, ds, tag.SOPInstanceUID))
		if got := stringValue(t, ds, tag.InstanceNumber); got != strconv.Itoa(i) {
			t.Errorf("InstanceNumber = %q, want %d", got, i)
		}
	}
	for i := 1; i < 3; i++ {
		if studies[i] != studies[0] || series[i] != series[0] {
			t.Errorf("image %d left the series: study %s series %s", i+1, studies[i], series[i])
		}
		if sops[i] == sops[0] {
			t.Errorf("image %d reuses SOPInstanceUID %s", i+1, sops[i])
		}
	}
}
