package referral

import (
	"net/url"
	"strings"
)

const (
	QueryParam = "ref"
	PathPrefix = "/ref/"
)

type Source int

const (
	SourceQuery Source = iota + 1
	SourcePath
)

type Capture struct {
	Token  string
	Source Source
	// CleanURL is the request URL with the query signal removed. It is only
	// set for SourceQuery; path referrals stay on the landing route.
	CleanURL *url.URL
}

// CaptureURL looks for a referral signal in u and stores it in slot. When both
// forms are present the path wins, since it is written last.
func CaptureURL(u *url.URL, slot Slot) (Capture, bool) {
	var (
		c     Capture
		found bool
	)

	q := u.Query()
	if token := strings.TrimSpace(q.Get(QueryParam)); token != "" {
		slot.Put(token)

		q.Del(QueryParam)
		clean := *u
		clean.RawQuery = q.Encode()
		c = Capture{Token: token, Source: SourceQuery, CleanURL: &clean}
		found = true
	}

	if token, ok := tokenFromPath(u.Path); ok {
		slot.Put(token)
		c = Capture{Token: token, Source: SourcePath}
		found = true
	}

	return c, found
}

func tokenFromPath(path string) (string, bool) {
	idx := strings.Index(path, PathPrefix)
	if idx < 0 {
		return "", false
	}
	token := strings.Trim(path[idx+len(PathPrefix):], "/")
	if token == "" {
		return "", false
	}
	return token, true
}
