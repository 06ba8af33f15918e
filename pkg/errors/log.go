package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LogHandler is an ErrorHandler that writes errors to stderr.
type LogHandler struct {
	// Verbose enables detailed output including stack traces and
	// unknown-node reports, which are routine during teardown races.
	Verbose bool
	// Out overrides the destination. Nil means os.Stderr.
	Out io.Writer
}

func (h *LogHandler) out() io.Writer {
	if h.Out != nil {
		return h.Out
	}
	return os.Stderr
}

// HandleError logs a RenderError.
func (h *LogHandler) HandleError(err *RenderError) {
	if err == nil {
		return
	}
	w := h.out()
	if !h.Verbose {
		if err.Kind == KindUnknownNode {
			return
		}
		fmt.Fprintf(w, "[nativerender error] %s: %v\n", err.Op, err.Err)
		return
	}
	fmt.Fprintf(w, "[nativerender error] %s\n", err.Error())
	if err.StackTrace != "" {
		fmt.Fprintf(w, "Stack trace:\n%s\n", err.StackTrace)
	}
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	w := h.out()
	if err.Op != "" {
		fmt.Fprintf(w, "[nativerender panic] %s: %v\n", err.Op, err.Value)
	} else {
		fmt.Fprintf(w, "[nativerender panic] %v\n", err.Value)
	}
	if h.Verbose && err.StackTrace != "" {
		fmt.Fprintf(w, "Stack trace:\n%s\n", err.StackTrace)
	}
}

// SlogHandler is an ErrorHandler that routes reports to a structured logger.
type SlogHandler struct {
	Logger *slog.Logger
}

// NewSlogHandler returns a handler logging to logger, or slog.Default() if nil.
func NewSlogHandler(logger *slog.Logger) *SlogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogHandler{Logger: logger}
}

// HandleError logs unknown-node reports at debug level and everything else at error level.
func (h *SlogHandler) HandleError(err *RenderError) {
	if err == nil {
		return
	}
	level := slog.LevelError
	if err.Kind == KindUnknownNode {
		level = slog.LevelDebug
	}
	attrs := []slog.Attr{
		slog.String("op", err.Op),
		slog.String("kind", err.Kind.String()),
		slog.Any("error", err.Err),
	}
	if err.RootID != 0 {
		attrs = append(attrs, slog.Any("root", err.RootID))
	}
	if err.Tag != 0 {
		attrs = append(attrs, slog.Any("tag", err.Tag))
	}
	h.Logger.LogAttrs(context.Background(), level, "nativerender: operation failed", attrs...)
}

// HandlePanic logs a recovered panic with its stack.
func (h *SlogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	h.Logger.Error("nativerender: recovered panic",
		"op", err.Op,
		"value", fmt.Sprint(err.Value),
		"stack", err.StackTrace,
	)
}
