package herald

import (
	"log/slog"
	"time"
)

// Canonical log field names shared by the builder, site writer and server.
const (
	KeyBuildID     = "build_id"
	KeyContentType = "content_type"
	KeyState       = "state"
	KeyPath        = "path"
	KeyTemplate    = "template"
	KeyCount       = "count"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

func BuildID(id string) slog.Attr           { return slog.String(KeyBuildID, id) }
func ContentTypeAttr(name string) slog.Attr { return slog.String(KeyContentType, name) }
func StateAttr(s State) slog.Attr           { return slog.String(KeyState, s.String()) }
func PathAttr(p string) slog.Attr           { return slog.String(KeyPath, p) }
func TemplateAttr(id string) slog.Attr      { return slog.String(KeyTemplate, id) }
func Count(n int) slog.Attr                 { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d)/float64(time.Millisecond))
}
func ErrorAttr(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
