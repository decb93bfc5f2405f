// Package notify collects user-facing notifications (toasts) raised while serving a
// request, so handlers can return them as JSON or carry them to the next page as flash.
package notify

import (
	"context"
	"sync"
)

// Variants of a notification.
const (
	VariantDefault     = "default"
	VariantDestructive = "destructive"
)

// Notification is one toast.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant"`
}

// Success builds a default-variant notification.
func Success(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault}
}

// Failure builds a destructive notification.
func Failure(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

// Recorder accumulates notifications for one request.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Push appends n.
func (r *Recorder) Push(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns the notifications pushed so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

type recorderKey struct{}

// WithRecorder returns a context carrying a fresh recorder.
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	r := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, r), r
}

// FromContext returns the recorder of ctx, or nil.
func FromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(recorderKey{}).(*Recorder)
	return r
}

// Push records n on the recorder of ctx. Without a recorder it is dropped.
func Push(ctx context.Context, n Notification) {
	if r := FromContext(ctx); r != nil {
		r.Push(n)
	}
}
