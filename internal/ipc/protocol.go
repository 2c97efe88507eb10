// Package ipc is the control plane a running session exposes to one-shot CLI
// invocations. Requests travel as gRPC unary calls over a unix socket.
package ipc

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName   = "voxscribe.Control"
	commandMethod = "/" + serviceName + "/Command"
)

// Request names one session operation: status, start, stop, toggle, save,
// end, clear, or exit.
type Request struct {
	Command string `json:"command"`
}

// Response reports the outcome plus a state snapshot.
type Response struct {
	OK         bool   `json:"ok"`
	State      string `json:"state"`
	Recording  bool   `json:"recording"`
	Processing bool   `json:"processing"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (r Request) toStruct() (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]any{"command": r.Command})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return s, nil
}

func requestFromStruct(s *structpb.Struct) Request {
	return Request{Command: s.GetFields()["command"].GetStringValue()}
}

func (r Response) toStruct() (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]any{
		"ok":         r.OK,
		"state":      r.State,
		"recording":  r.Recording,
		"processing": r.Processing,
		"message":    r.Message,
		"error":      r.Error,
	})
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return s, nil
}

func responseFromStruct(s *structpb.Struct) Response {
	fields := s.GetFields()
	return Response{
		OK:         fields["ok"].GetBoolValue(),
		State:      fields["state"].GetStringValue(),
		Recording:  fields["recording"].GetBoolValue(),
		Processing: fields["processing"].GetBoolValue(),
		Message:    fields["message"].GetStringValue(),
		Error:      fields["error"].GetStringValue(),
	}
}
