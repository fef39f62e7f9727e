package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
		excludes []string
	}{
		{
			name: "full error",
			err: &Error{
				Op:     OpBind,
				Code:   CodeAlreadyBound,
				Handle: 7,
				Detail: "socket is already bound",
			},
			contains: []string{"[bind]", "socketAlreadyBoundError", "handle 7", "already bound"},
		},
		{
			name: "minimal error",
			err: &Error{
				Op:     OpDispatch,
				Code:   CodeDispatcherClosed,
				Handle: NoHandle,
			},
			contains: []string{"[dispatch]", "dispatcherClosed"},
			excludes: []string{"handle"},
		},
		{
			name: "error with cause",
			err: &Error{
				Op:     OpSend,
				Code:   CodeSend,
				Handle: 3,
				Detail: "write failed",
				Cause:  errors.New("network is unreachable"),
			},
			contains: []string{"[send]", "sendError", "write failed", "caused by", "unreachable"},
		},
		{
			name:     "handle zero is a real handle",
			err:      ClientNotFound(OpClose, 0),
			contains: []string{"handle 0", "no client found with id 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(msg, s) {
					t.Errorf("error message %q should not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	cause := errors.New("address already in use")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"detail and cause", AlreadyBound(1, "bind 0.0.0.0:5000", cause), "bind 0.0.0.0:5000: address already in use"},
		{"detail only", ClientExists(4), "createSocket called twice with the same id"},
		{"cause only", &Error{Code: CodeSend, Cause: cause}, "address already in use"},
		{"neither", &Error{Code: CodeBroadcast}, "setBroadcast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Send(1, "write failed", cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause through the chain")
	}
}

func TestError_Is(t *testing.T) {
	err := ClientNotFound(OpBind, 9)

	if !err.Is(&Error{Op: OpBind, Code: CodeClientNotFound}) {
		t.Error("Is should match same op and code")
	}

	if !err.Is(&Error{Code: CodeClientNotFound}) {
		t.Error("Is should match code when target has no op")
	}

	if err.Is(&Error{Op: OpSend, Code: CodeClientNotFound}) {
		t.Error("Is should not match different op")
	}

	if err.Is(&Error{Op: OpBind, Code: CodeAlreadyBound}) {
		t.Error("Is should not match different code")
	}

	if !errors.Is(err, ErrClientNotFound) {
		t.Error("errors.Is should match sentinel")
	}

	if errors.Is(err, ErrSend) {
		t.Error("errors.Is should not match unrelated sentinel")
	}

	var target *Error
	if !errors.As(error(err), &target) || target.Handle != 9 {
		t.Errorf("errors.As = %v, want handle 9", target)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(OpMembership, CodeMembership).
		Handle(12).
		Cause(cause).
		Detail("join %s on %s", "239.1.1.1", "eth0").
		Build()

	if err.Op != OpMembership {
		t.Errorf("Op = %v, want %v", err.Op, OpMembership)
	}
	if err.Code != CodeMembership {
		t.Errorf("Code = %v, want %v", err.Code, CodeMembership)
	}
	if err.Handle != 12 {
		t.Errorf("Handle = %v, want 12", err.Handle)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "join 239.1.1.1 on eth0" {
		t.Errorf("Detail = %v, want 'join 239.1.1.1 on eth0'", err.Detail)
	}

	plain := New(OpClose, CodeInternal).Detail("nothing to format").Build()
	if plain.Detail != "nothing to format" {
		t.Errorf("Detail without args should be kept as is, got %q", plain.Detail)
	}

	percent := New(OpClose, CodeInternal).Detail("%s", "100% done").Build()
	if percent.Detail != "100% done" {
		t.Errorf("Detail = %q, want '100%% done'", percent.Detail)
	}
	if plain.Handle != NoHandle {
		t.Errorf("Handle = %v, want NoHandle", plain.Handle)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  *Error
		op   Op
		code Code
	}{
		{"ClientNotFound", ClientNotFound(OpSend, 1), OpSend, CodeClientNotFound},
		{"ClientExists", ClientExists(1), OpCreate, CodeClientExists},
		{"AlreadyBound", AlreadyBound(1, "bind", cause), OpBind, CodeAlreadyBound},
		{"Send", Send(1, "send", cause), OpSend, CodeSend},
		{"Membership", Membership(1, "join", cause), OpMembership, CodeMembership},
		{"Broadcast", Broadcast(1, "set", cause), OpBroadcast, CodeBroadcast},
		{"Receive", Receive(1, cause), OpReceive, CodeReceive},
		{"Closed", Closed(OpBind, 1), OpBind, CodeDispatcherClosed},
		{"Internal", Internal(OpDispatch, 1, cause), OpDispatch, CodeInternal},
		{"InvalidConfig", InvalidConfig("workers", cause), OpConfig, CodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Op != tt.op {
				t.Errorf("Op = %v, want %v", tt.err.Op, tt.op)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
		})
	}

	if InvalidConfig("x", nil).Handle != NoHandle {
		t.Error("InvalidConfig should not carry a handle")
	}
}
