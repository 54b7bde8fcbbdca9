package x11

import (
	"fmt"
	"math"

	"github.com/BurntSushi/xgb/randr"

	"github.com/1broseidon/readershell/internal/display"
)

// GetDisplays enumerates active displays via XRandR in CRTC order. The
// returned indices are ordinals within this snapshot only; a display
// unplugged and replugged may land on a different index next time.
//
// overrides maps output names to fixed scale factors. Outputs without an
// override get a scale inferred from their reported physical size.
func (c *Connection) GetDisplays(overrides map[string]float64) ([]display.Display, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var displays []display.Display

	for _, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs.
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Display %d", len(displays)+1)
		mmWidth := 0
		if outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(outputInfo.Name)
			mmWidth = int(outputInfo.MmWidth)
		}

		scale := inferScale(int(crtcInfo.Width), mmWidth)
		if override, ok := overrides[name]; ok && override > 0 {
			scale = override
		}

		displays = append(displays, display.Display{
			Index:  len(displays),
			Name:   name,
			Bounds: display.Rect{X: int(crtcInfo.X), Y: int(crtcInfo.Y), Width: int(crtcInfo.Width), Height: int(crtcInfo.Height)},
			Scale:  scale,
		})
	}

	return displays, nil
}

// inferScale guesses a display's scale factor from its pixel width and
// physical width. RandR has no notion of scale, so we derive it from DPI
// relative to the 96dpi baseline, snapped to quarter steps and clamped to
// [1, 3]. Projectors and VMs report zero millimetres; treat those as 1x.
func inferScale(pxWidth, mmWidth int) float64 {
	if mmWidth <= 0 || pxWidth <= 0 {
		return 1.0
	}
	dpi := float64(pxWidth) / (float64(mmWidth) / 25.4)
	scale := math.Round(dpi/96.0*4) / 4
	if scale < 1.0 {
		return 1.0
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}
