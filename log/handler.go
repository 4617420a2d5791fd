package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// levelColors mirrors the level palette go-ethereum's own terminal log
// handler uses, built on the same fatih/color dependency.
var levelColors = map[slog.Level]*color.Color{
	slog.LevelDebug: color.New(color.FgCyan),
	slog.LevelInfo:  color.New(color.FgGreen),
	slog.LevelWarn:  color.New(color.FgYellow),
	slog.LevelError: color.New(color.FgRed, color.Bold),
}

// TerminalHandler is a compact, colorized slog.Handler: `lvl=info
// t=<RFC 3339 time> msg="..." component=sync key=val ...`, attributes sorted
// by key. Color is only emitted when the
// underlying writer is a real terminal (detected via go-isatty, with
// go-colorable translating ANSI codes on Windows consoles).
type TerminalHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	color  bool
	attrs  []slog.Attr
	level  slog.Leveler
	caller bool
}

// NewTerminalHandler builds a handler writing to w, auto-detecting color
// support when w is os.Stdout/os.Stderr.
func NewTerminalHandler(w io.Writer, minLevel slog.Leveler) *TerminalHandler {
	h := &TerminalHandler{mu: &sync.Mutex{}, out: w, level: minLevel, caller: true}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		h.color = true
		h.out = colorable.NewColorable(f)
	}
	return h
}

func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *TerminalHandler) WithGroup(_ string) slog.Handler {
	// Groups are flattened: this repo's call sites never nest groups, and
	// a flat key=value line is easier to grep in a terminal.
	return h
}

func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	lvl := levelLabel(r.Level)
	if h.color {
		c := levelColors[r.Level]
		if c == nil {
			c = color.New(color.Reset)
		}
		c.Fprint(&buf, lvl)
	} else {
		buf.WriteString(lvl)
	}

	fmt.Fprintf(&buf, " t=%s msg=%q", r.Time.Format(time.RFC3339), r.Message)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	sort.SliceStable(attrs, func(i, j int) bool { return attrs[i].Key < attrs[j].Key })
	for _, a := range attrs {
		fmt.Fprintf(&buf, " %s=%v", a.Key, a.Value.Any())
	}

	if h.caller && r.Level >= slog.LevelWarn {
		if frame := callerFrame(); frame != "" {
			fmt.Fprintf(&buf, " caller=%s", frame)
		}
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func levelLabel(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "lvl=eror"
	case l >= slog.LevelWarn:
		return "lvl=warn"
	case l >= slog.LevelInfo:
		return "lvl=info"
	default:
		return "lvl=dbug"
	}
}

// callerFrame walks the goroutine stack with go-stack/stack to find the
// first frame outside this package, matching the caller info geth's log
// package attaches to warn/error records.
func callerFrame() string {
	for _, c := range stack.Trace().TrimRuntime() {
		frame := fmt.Sprintf("%+v", c)
		if !bytes.Contains([]byte(frame), []byte("chainmsg/log")) {
			return frame
		}
	}
	return ""
}
