package root_view

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"advent/calendar"
	"advent/server/cell_views"
	"advent/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// batchRate is the window within which updates for the same element are merged.
const batchRate = time.Millisecond * 20

// RootView is the main page's index.html, which is the container for all the
// view components, the wiring for their channels, etc.
type RootView struct {
	sessionID string
	convert   func([]calendar.Cell) []cell_views.Box
	views     []fastview.ViewComponent
	updates   <-chan []fastview.EleUpdate
}

// PageData is the data with which the main page template is executed.
type PageData struct {
	SessionID string
	Boxes     []cell_views.Box
}

// NewRootView creates the page of a session and the views it contains, fed by the
// session's cell snapshots.
func NewRootView(
	ctx context.Context,
	sessionID string,
	snapshots <-chan []calendar.Cell,
) (*RootView, error) {
	convert := cell_views.Convert(sessionID)
	views, err := fastview.NewViewBuilder[[]calendar.Cell, []cell_views.Box]().
		WithContext(ctx).
		WithModel(snapshots, convert).
		WithView(func(
			done <-chan struct{},
			boxes <-chan []cell_views.Box) fastview.ViewComponent {
			return cell_views.NewCalendarGrid(done, boxes)
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}

	return &RootView{
		sessionID: sessionID,
		convert:   convert,
		views:     views,
		updates:   fanIn(ctx.Done(), views),
	}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Data returns the page data for the passed cells.
func (rv *RootView) Data(cells []calendar.Cell) PageData {
	return PageData{
		SessionID: rv.sessionID,
		Boxes:     rv.convert(cells),
	}
}

// Parse builds the main page's template, with websocket bootstrap code, and returns its name.
// The template is executed with PageData; child views receive its Boxes.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	viewTemplates := []string{}
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(parent)
		if parseErr != nil {
			return "", parseErr
		}
		viewTemplates = append(viewTemplates, tname)
	}

	// Specify the nested templates
	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += `{{ template "` + tname + `" .Boxes }}`
	}

	// The main template bootstraps the rest: sets up client websocket and updates, aggregates views.
	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<meta charset="utf-8">
			<title>Advent calendar</title>
			<link rel="icon" href="data:,">
			<!--This is the client bootstrap code by which the server pushes new data to the view via websocket.-->
			<script>
				const sessionID = {{ .SessionID }};
				const scheme = location.protocol === "https:" ? "wss://" : "ws://";
				const ws = new WebSocket(scheme + location.host + "/ws/" + sessionID);
				ws.onopen = function (event) {
					console.log("Web socket opened");
				};

				// Listen for errors
				ws.onerror = function (event) {
					console.log("WebSocket error: ", event);
				};

				// When the server pushes view updates, find these eles and update them.
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data);
					for (const update of items) {
						const ele = document.getElementById(update.EleId);
						if (!ele) {
							continue;
						}
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else if (op.Key === "hidden") {
								ele.hidden = op.Value === "true";
							} else {
								ele.setAttribute(op.Key, op.Value);
							}
						}
					}
				};

				// Clicks on an overlay open its day. Without a websocket, fall back to a plain request.
				document.addEventListener("click", function (event) {
					const day = Number(event.target.dataset.day);
					if (!day) {
						return;
					}
					if (ws.readyState === WebSocket.OPEN) {
						ws.send(JSON.stringify({ day: day }));
						return;
					}
					fetch("/sessions/" + sessionID + "/cells/" + day + "/open", { method: "POST" })
						.then(function (resp) {
							if (resp.status === 404) {
								// The session was swept; start over with a fresh one.
								location.reload();
								return null;
							}
							return resp.json();
						})
						.then(function (click) {
							if (!click || !click.open) {
								return;
							}
							document.getElementById(day + "-overlay").hidden = true;
							document.getElementById(day + "-label").hidden = true;
							const img = document.getElementById(day + "-canvas");
							img.src = img.src.split("?")[0] + "?t=" + Date.now();
						})
						.catch(function (err) {
							console.log("open failed: ", err);
						});
				});
			</script>
		</head>
		<body>
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = parent.Parse(indexTemplate)
	return
}

// fanIn aggregates the views' ele-update channels into a single channel,
// and batches its output.
func fanIn(
	done <-chan struct{},
	views []fastview.ViewComponent,
) <-chan []fastview.EleUpdate {
	inputs := make([]<-chan []fastview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		batchRate)
}

// batchify batches within the passed time frame before sending, over-writing previously
// received values for the same ele-id. This ensures that redundant updates for the
// same ele-id are not sent, and only the latest values are sent. A pending batch is
// flushed on the next tick, or when the source closes.
func batchify(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		data := map[string]fastview.EleUpdate{}
		order := []string{}
		send := func() bool {
			batch := make([]fastview.EleUpdate, 0, len(order))
			for _, id := range order {
				batch = append(batch, data[id])
			}
			select {
			case output <- batch:
				data = map[string]fastview.EleUpdate{}
				order = order[:0]
				return true
			case <-done:
				return false
			}
		}

		ticker := channerics.NewTicker(done, rate)
		for {
			select {
			case <-done:
				return
			case <-ticker:
				if len(order) > 0 && !send() {
					return
				}
			case updates, ok := <-source:
				if !ok {
					if len(order) > 0 {
						send()
					}
					return
				}
				// Intentionally overwrites pre-existing values for an ele-id within this batch's time frame.
				for _, update := range updates {
					if _, seen := data[update.EleId]; !seen {
						order = append(order, update.EleId)
					}
					data[update.EleId] = update
				}
			}
		}
	}()

	return output
}
