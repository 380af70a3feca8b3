package service

import (
	"net/url"
	"strings"
)

// ThanksURL is the thank-you page a respondent lands on after dispatch
// rejection or survey completion.
func ThanksURL(baseURL, code, uid string) string {
	q := url.Values{}
	q.Set("end", code)
	q.Set("uid", uid)
	return strings.TrimSuffix(baseURL, "/") + "/Thanks/Verify?" + encodeOrdered(q, "end", "uid")
}

// TestSurveyURL is the entry link handed to project managers for testing a project.
func TestSurveyURL(baseURL, stid, uid string) string {
	q := url.Values{}
	q.Set("stid", stid)
	q.Set("uid", uid)
	return strings.TrimSuffix(baseURL, "/") + "/Survey?" + encodeOrdered(q, "stid", "uid")
}

// encodeOrdered encodes q in the given key order rather than url.Values' sorted order.
func encodeOrdered(q url.Values, keys ...string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(q.Get(k)))
	}
	return strings.Join(parts, "&")
}
