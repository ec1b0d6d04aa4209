package models

import "testing"

func TestParseChannelArg(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    ChannelRef
		wantErr bool
	}{
		{
			name: "numeric id",
			arg:  "-1001234567890",
			want: ChannelRef{Name: "-1001234567890"},
		},
		{
			name: "username",
			arg:  "@mychannel",
			want: ChannelRef{Name: "@mychannel", Link: "https://t.me/mychannel"},
		},
		{
			name: "https link",
			arg:  "https://t.me/mychannel",
			want: ChannelRef{Name: "@mychannel", Link: "https://t.me/mychannel"},
		},
		{
			name: "bare link",
			arg:  "t.me/mychannel",
			want: ChannelRef{Name: "@mychannel", Link: "https://t.me/mychannel"},
		},
		{
			name: "link with trailing slash",
			arg:  "https://t.me/mychannel/",
			want: ChannelRef{Name: "@mychannel", Link: "https://t.me/mychannel"},
		},
		{name: "empty", arg: "  ", wantErr: true},
		{name: "bare name", arg: "mychannel", wantErr: true},
		{name: "empty link", arg: "https://t.me/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChannelArg(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.arg)
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

func TestChannelListRoundTrip(t *testing.T) {
	channels := []ChannelRef{
		{Name: "@first", Link: "https://t.me/first"},
		{Name: "-1009876543210"},
	}

	encoded, err := EncodeChannelList(channels)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := DecodeChannelList(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != len(channels) {
		t.Fatalf("expected %d channels, got %d", len(channels), len(decoded))
	}
	for i := range channels {
		if decoded[i] != channels[i] {
			t.Fatalf("channel %d mismatch: expected %+v, got %+v", i, channels[i], decoded[i])
		}
	}
}

func TestDecodeChannelListEmpty(t *testing.T) {
	channels, err := DecodeChannelList("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channels != nil {
		t.Fatalf("expected nil for empty value, got %+v", channels)
	}
}

func TestEncodeMessageIDsRoundTrip(t *testing.T) {
	job := &DeleteJob{MessageIDs: `[11,12,13]`}

	ids, err := job.DecodeMessageIDs()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != 11 || ids[2] != 13 {
		t.Fatalf("unexpected ids: %v", ids)
	}

	encoded, err := EncodeMessageIDs(ids)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded != `[11,12,13]` {
		t.Fatalf("unexpected encoding: %s", encoded)
	}
}

func TestDecodeMessageIDsInvalid(t *testing.T) {
	job := &DeleteJob{ID: 5, MessageIDs: "not-json"}
	if _, err := job.DecodeMessageIDs(); err == nil {
		t.Fatal("expected error for invalid message ids")
	}
}
