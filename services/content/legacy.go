package content

import (
	"strconv"
	"strings"
)

const (
	delayMarker = "delay_sec:"
	imageMarker = "image_file_id:"
)

// Descriptor is the decoded form of a legacy step description.
type Descriptor struct {
	Caption     string
	Delay       int
	ImageFileID string
}

// ParseLegacy decodes the legacy "caption|delay_sec:N|image_file_id:X" format.
// It never fails: malformed directives are dropped and every segment that is
// not a directive is kept as caption text. The first occurrence of a
// directive wins.
func ParseLegacy(s string) Descriptor {
	var (
		d        Descriptor
		caption  []string
		hasDelay bool
	)

	for _, segment := range strings.Split(s, "|") {
		segment = strings.TrimSpace(segment)
		switch {
		case segment == "":
		case strings.HasPrefix(segment, delayMarker):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(segment, delayMarker)))
			if err != nil || n < 0 || hasDelay {
				continue
			}
			d.Delay, hasDelay = n, true
		case strings.HasPrefix(segment, imageMarker):
			id := strings.TrimSpace(strings.TrimPrefix(segment, imageMarker))
			if id == "" || d.ImageFileID != "" {
				continue
			}
			d.ImageFileID = id
		default:
			caption = append(caption, segment)
		}
	}

	d.Caption = strings.Join(caption, "|")
	return d
}

// Blocks converts the descriptor into the structured content model. The
// image is rendered before the caption.
func (d Descriptor) Blocks() Blocks {
	blocks := make(Blocks, 0, 3)
	if d.ImageFileID != "" {
		blocks = append(blocks, ImageBlock(d.ImageFileID))
	}
	if d.Caption != "" {
		blocks = append(blocks, TextBlock(d.Caption))
	}
	if d.Delay > 0 {
		blocks = append(blocks, DelayDirective(d.Delay))
	}
	return blocks
}
