package session

import "testing"

func TestParseTarget(t *testing.T) {
	cases := []struct {
		path        string
		wantRole    role
		wantChannel string
		wantOK      bool
	}{
		{"/weather/pub", rolePublisher, "weather", true},
		{"/weather/sub", roleSubscriber, "weather", true},
		{"/a/b/pub", rolePublisher, "a/b", false}, // channel name containing "/" is rejected
		{"//pub", rolePublisher, "", true},        // empty channel name is syntactically valid
		{"//sub", roleSubscriber, "", true},
		{"/weather", 0, "", false},
		{"weather/pub", 0, "", false}, // missing leading slash
		{"", 0, "", false},
		{"/pu", 0, "", false},
	}

	for _, tc := range cases {
		r, channel, ok := parseTarget(tc.path)
		if ok != tc.wantOK {
			t.Errorf("parseTarget(%q) ok = %v, want %v", tc.path, ok, tc.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if r != tc.wantRole {
			t.Errorf("parseTarget(%q) role = %v, want %v", tc.path, r, tc.wantRole)
		}
		if channel != tc.wantChannel {
			t.Errorf("parseTarget(%q) channel = %q, want %q", tc.path, channel, tc.wantChannel)
		}
	}
}
