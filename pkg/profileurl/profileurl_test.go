package profileurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInstagramUsername(t *testing.T) {
	tests := []struct {
		url  string
		want Result
	}{
		{"https://www.instagram.com/john.doe/", Result{OK: true, Username: "john.doe"}},
		{"https://instagram.com/Maria_01", Result{OK: true, Username: "Maria_01"}},
		{"https://WWW.Instagram.com/ana/tagged/", Result{OK: true, Username: "ana"}},
		{"https://www.instagram.com/ana?igsh=abc", Result{OK: true, Username: "ana"}},
		{"https://www.instagram.com/p/Cxyz123/", Result{Reason: ReasonNotProfile}},
		{"https://www.instagram.com/reels/abc", Result{Reason: ReasonNotProfile}},
		{"https://www.instagram.com/stories/ana/1", Result{Reason: ReasonNotProfile}},
		{"https://www.instagram.com/", Result{Reason: ReasonNotInstagram}},
		{"https://www.facebook.com/ana", Result{Reason: ReasonNotInstagram}},
		{"https://instagram.com.evil.io/ana", Result{Reason: ReasonNotInstagram}},
		{"https://www.instagram.com/an%20a", Result{Reason: ReasonInvalidUsername}},
		{"https://www.instagram.com/jo%C3%A3o", Result{Reason: ReasonInvalidUsername}},
		{"instagram.com/ana", Result{Reason: ReasonInvalidURL}},
		{"::", Result{Reason: ReasonInvalidURL}},
		{"", Result{Reason: ReasonInvalidURL}},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInstagramUsername(tt.url))
		})
	}
}
