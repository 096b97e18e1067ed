package cell_views

import (
	"fmt"
	"html/template"
	"strings"

	"advent/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

const (
	// boxDim is the displayed size of a box in pixels, matching the surface size.
	boxDim = 125
	// columns of the grid
	columns = 6
)

// CalendarGrid is the grid of boxes: each box shows its drawing surface, and while closed
// a day label and a clickable overlay on top of it.
type CalendarGrid struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

// NewCalendarGrid returns a grid view whose updates follow the passed boxes.
func NewCalendarGrid(
	done <-chan struct{},
	boxes <-chan []Box,
) (cg *CalendarGrid) {
	// Hyphens interfere with html/template's `template` directive.
	cg = &CalendarGrid{id: "calendargrid"}
	cg.updates = channerics.Convert(done, boxes, cg.onUpdate)
	return
}

func (cg *CalendarGrid) Updates() <-chan []fastview.EleUpdate {
	return cg.updates
}

// Element ids of a box's parts.
func OverlayID(day int) string { return fmt.Sprintf("%d-overlay", day) }
func LabelID(day int) string   { return fmt.Sprintf("%d-label", day) }
func CanvasID(day int) string  { return fmt.Sprintf("%d-canvas", day) }

// onUpdate returns the ele-updates for the view to reflect the passed boxes. Every box is
// described in full, so any update may replace the previous ones.
func (cg *CalendarGrid) onUpdate(boxes []Box) (updates []fastview.EleUpdate) {
	for _, box := range boxes {
		updates = append(updates,
			fastview.EleUpdate{
				EleId: OverlayID(box.Day),
				Ops:   []fastview.Op{fastview.HiddenOp(box.Open)},
			},
			fastview.EleUpdate{
				EleId: LabelID(box.Day),
				Ops:   []fastview.Op{fastview.HiddenOp(box.Open)},
			},
			fastview.EleUpdate{
				EleId: CanvasID(box.Day),
				Ops:   []fastview.Op{{Key: "src", Value: box.ImageSrc}},
			})
	}
	return
}

// Parse defines the grid's template in t. The template's data is the initial []Box.
func (cg *CalendarGrid) Parse(
	t *template.Template,
) (name string, err error) {
	name = cg.id
	dim := fmt.Sprintf("%d", boxDim)
	style := strings.NewReplacer(
		"$dim", dim,
		"$cols", fmt.Sprintf("%d", columns),
	).Replace(`
		#` + cg.id + ` {
			display: grid;
			grid-template-columns: repeat($cols, $dimpx);
			gap: 8px;
		}
		#` + cg.id + ` .box { position: relative; width: $dimpx; height: $dimpx; }
		#` + cg.id + ` .box img { display: block; border: 1px solid black; }
		#` + cg.id + ` .day { position: absolute; top: 8px; left: 8px; font-weight: bold; z-index: 2; }
		#` + cg.id + ` .overlay {
			position: absolute; inset: 0;
			background: linear-gradient(135deg, #2f4f6f, #87ceeb);
			cursor: pointer; z-index: 1;
		}`)

	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<style>` + style + `</style>
		<div id="` + cg.id + `">
			{{ range $box := . }}
			<div class="box">
				<img id="{{ $box.Day }}-canvas" src="{{ $box.ImageSrc }}"
					width="` + dim + `" height="` + dim + `" alt="day {{ $box.Day }}">
				<span id="{{ $box.Day }}-label" class="day" {{ if $box.Open }}hidden{{ end }}>{{ $box.Day }}</span>
				<div id="{{ $box.Day }}-overlay" class="overlay" data-day="{{ $box.Day }}" {{ if $box.Open }}hidden{{ end }}></div>
			</div>
			{{ end }}
		</div>
		{{ end }}`)
	return
}
