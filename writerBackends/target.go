package writerbackends

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var ErrUnsupportedTarget = errors.New("unsupported publish target")

// Target is a parsed --publish destination
type Target struct {
	Scheme string // file, s3, gs or sftp
	Host   string // bucket name, or sftp host
	Port   string
	User   string
	Prefix string // directory or key prefix, slash separated
}

// ParseTarget parses file:///dir, s3://bucket/prefix, gs://bucket/prefix and
// sftp://user@host:port/path
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Target{}, fmt.Errorf("invalid publish target %q: %w", raw, err)
	}

	t := Target{Scheme: strings.ToLower(u.Scheme)}
	switch t.Scheme {
	case "file":
		if u.Host != "" && u.Host != "localhost" {
			return Target{}, fmt.Errorf("file target %q must not name a host", raw)
		}
		t.Prefix = u.Path
		if t.Prefix == "" {
			return Target{}, fmt.Errorf("file target %q needs a directory", raw)
		}
	case "s3", "gs":
		t.Host = u.Host
		if t.Host == "" {
			return Target{}, fmt.Errorf("%s target %q needs a bucket", t.Scheme, raw)
		}
		t.Prefix = strings.Trim(u.Path, "/")
	case "sftp":
		t.Host = u.Hostname()
		t.Port = u.Port()
		if t.Port == "" {
			t.Port = "22"
		}
		if u.User != nil {
			t.User = u.User.Username()
		}
		if t.Host == "" || t.User == "" {
			return Target{}, fmt.Errorf("sftp target %q needs user@host", raw)
		}
		t.Prefix = u.Path
		if t.Prefix == "" {
			t.Prefix = "."
		}
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedTarget, raw)
	}
	return t, nil
}

// Key joins the target prefix with a slash separated relative path
func (t Target) Key(rel string) string {
	if t.Prefix == "" {
		return rel
	}
	return path.Join(t.Prefix, rel)
}

func (t Target) String() string {
	switch t.Scheme {
	case "file":
		return "file://" + t.Prefix
	case "sftp":
		return fmt.Sprintf("sftp://%s@%s:%s%s", t.User, t.Host, t.Port, t.Prefix)
	default:
		if t.Prefix == "" {
			return fmt.Sprintf("%s://%s", t.Scheme, t.Host)
		}
		return fmt.Sprintf("%s://%s/%s", t.Scheme, t.Host, t.Prefix)
	}
}
