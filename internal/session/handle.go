package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/voxscribe/internal/ipc"
)

// Handle serves IPC commands for the running session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	command := strings.ToLower(strings.TrimSpace(req.Command))

	var r result
	switch command {
	case "status":
		r = result{message: "status"}
	case "start":
		r = c.call(c.start)
	case "stop":
		r = c.call(c.stop)
	case "toggle":
		r = c.call(c.toggle)
	case "save":
		r = c.call(c.save)
	case "end":
		r = c.call(c.end)
	case "clear":
		r = c.call(c.clear)
	case "exit":
		r = c.call(c.exit)
	default:
		r = result{err: fmt.Errorf("unknown command: %s", req.Command)}
	}
	return c.response(r)
}

func (c *Controller) response(r result) ipc.Response {
	snapshot := c.Snapshot()
	resp := ipc.Response{
		OK:         r.err == nil,
		State:      string(snapshot.State),
		Recording:  snapshot.Recording,
		Processing: snapshot.Processing,
		Message:    r.message,
	}
	if r.err != nil {
		resp.Error = r.err.Error()
	}
	return resp
}
