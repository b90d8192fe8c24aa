package session

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Jar is an http.CookieJar keyed by host name. Every response's Set-Cookie
// headers are merged by cookie name, so rotated session tokens replace the
// old ones.
type Jar struct {
	mu      sync.Mutex
	cookies map[string]map[string]*http.Cookie
	now     func() time.Time
}

var _ http.CookieJar = (*Jar)(nil)

// NewJar returns an empty jar.
func NewJar() *Jar {
	return &Jar{
		cookies: make(map[string]map[string]*http.Cookie),
		now:     time.Now,
	}
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	host := hostKey(u)
	if host == "" || len(cookies) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	set := j.cookies[host]
	if set == nil {
		set = make(map[string]*http.Cookie)
		j.cookies[host] = set
	}
	now := j.now()
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) {
			delete(set, c.Name)
			continue
		}
		dup := *c
		if dup.MaxAge > 0 {
			dup.Expires = now.Add(time.Duration(dup.MaxAge) * time.Second)
		}
		set[c.Name] = &dup
	}
	if len(set) == 0 {
		delete(j.cookies, host)
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	host := hostKey(u)
	j.mu.Lock()
	defer j.mu.Unlock()

	set := j.cookies[host]
	if len(set) == 0 {
		return nil
	}
	now := j.now()
	out := make([]*http.Cookie, 0, len(set))
	for name, c := range set {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			delete(set, name)
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Clear drops every cookie stored for host.
func (j *Jar) Clear(host string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.cookies, strings.ToLower(host))
}

// Has reports whether any cookie is stored for host.
func (j *Jar) Has(host string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies[strings.ToLower(host)]) > 0
}

func hostKey(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
