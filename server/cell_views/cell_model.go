// cell_views contains views derived from the Box view-model.
package cell_views

import (
	"fmt"
	"net/url"

	"advent/calendar"
)

// Box is the view-model of one calendar cell. As a rule of thumb, Box fields should be
// immediately usable as view parameters.
type Box struct {
	Day  int
	Open bool
	// ImageSrc is the url of the cell's drawing surface. It carries the cell's version so
	// the page refetches the image after every redraw.
	ImageSrc string
}

// Convert returns a function transforming a session's cells into Boxes.
func Convert(sessionID string) func([]calendar.Cell) []Box {
	id := url.PathEscape(sessionID)
	return func(cells []calendar.Cell) []Box {
		boxes := make([]Box, len(cells))
		for i, cell := range cells {
			boxes[i] = Box{
				Day:      cell.Day,
				Open:     cell.IsOpen,
				ImageSrc: ImageSrc(id, cell.Day, cell.Version),
			}
		}
		return boxes
	}
}

// ImageSrc returns the url of a cell's surface image.
func ImageSrc(sessionID string, day, version int) string {
	return fmt.Sprintf("/sessions/%s/cells/%d.png?v=%d", sessionID, day, version)
}
