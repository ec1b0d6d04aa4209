package models

import "testing"

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    CallbackCommand
		wantErr bool
	}{
		{
			name: "protect on",
			data: "protect:1",
			want: CallbackCommand{Kind: CallbackProtect, Confirm: true},
		},
		{
			name: "protect off",
			data: "protect:0",
			want: CallbackCommand{Kind: CallbackProtect, Confirm: false},
		},
		{
			name: "retry",
			data: "retry:42",
			want: CallbackCommand{Kind: CallbackRetry, SessionID: 42},
		},
		{
			name: "revoke confirmed",
			data: "revoke:7:yes",
			want: CallbackCommand{Kind: CallbackRevoke, SessionID: 7, Confirm: true},
		},
		{
			name: "revoke canceled",
			data: "revoke:7:no",
			want: CallbackCommand{Kind: CallbackRevoke, SessionID: 7, Confirm: false},
		},
		{
			name: "noop",
			data: "noop",
			want: CallbackCommand{Kind: CallbackNoop},
		},
		{name: "unknown kind", data: "recall:abc", wantErr: true},
		{name: "protect bad flag", data: "protect:yes", wantErr: true},
		{name: "retry missing id", data: "retry", wantErr: true},
		{name: "retry bad id", data: "retry:abc", wantErr: true},
		{name: "revoke bad decision", data: "revoke:7:maybe", wantErr: true},
		{name: "empty payload", data: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallbackData(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.data)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCallbackCommandRoundTrip(t *testing.T) {
	commands := []CallbackCommand{
		{Kind: CallbackProtect, Confirm: true},
		{Kind: CallbackProtect, Confirm: false},
		{Kind: CallbackRetry, SessionID: 99},
		{Kind: CallbackRevoke, SessionID: 3, Confirm: true},
		{Kind: CallbackRevoke, SessionID: 3, Confirm: false},
		{Kind: CallbackNoop},
	}

	for _, cmd := range commands {
		got, err := ParseCallbackData(cmd.Encode())
		if err != nil {
			t.Fatalf("failed to parse %q: %v", cmd.Encode(), err)
		}
		if got != cmd {
			t.Fatalf("round trip mismatch: sent %+v, got %+v", cmd, got)
		}
	}
}
