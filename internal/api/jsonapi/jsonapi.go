// Package jsonapi renders JSON:API 1.1 envelopes. Only the subset the
// Scubafy API emits is modelled: single resources, collections with a
// total count, and error documents that may carry a client redirect in
// top-level meta.
package jsonapi

import (
	"encoding/json"
	"net/http"
)

const contentType = "application/vnd.api+json"

// Meta is free-form non-standard information, used for redirects,
// onboarding hints and deletion tallies.
type Meta map[string]any

// Document is a single-resource document.
type Document struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta,omitempty"`
}

// ListDocument is a collection document.
type ListDocument struct {
	Data []any `json:"data"`
	Meta Meta  `json:"meta,omitempty"`
}

// ResourceObject is one typed resource.
type ResourceObject struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes any    `json:"attributes,omitempty"`
	Meta       Meta   `json:"meta,omitempty"`
}

// ErrorDocument is an error response. Meta carries out-of-band hints such
// as the page a denied client should navigate to.
type ErrorDocument struct {
	Errors []ErrorObject `json:"errors"`
	Meta   Meta          `json:"meta,omitempty"`
}

// ErrorObject is a single error.
type ErrorObject struct {
	Status string       `json:"status,omitempty"`
	Code   string       `json:"code,omitempty"`
	Title  string       `json:"title,omitempty"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
}

// ErrorSource points at the request member that caused an error.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

// Render writes doc with the JSON:API content type.
func Render(w http.ResponseWriter, status int, doc any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

// RenderOne writes a single-resource document.
func RenderOne(w http.ResponseWriter, status int, data any) {
	Render(w, status, Document{Data: data})
}

// RenderOneMeta writes a single-resource document with top-level meta.
func RenderOneMeta(w http.ResponseWriter, status int, data any, meta Meta) {
	Render(w, status, Document{Data: data, Meta: meta})
}

// RenderList writes a collection document. A nil slice renders as [] and
// meta.total always reports the number of items.
func RenderList(w http.ResponseWriter, status int, data []any) {
	if data == nil {
		data = []any{}
	}
	Render(w, status, ListDocument{Data: data, Meta: Meta{"total": len(data)}})
}

func errorObject(status int, code, title, detail string) ErrorObject {
	return ErrorObject{Status: http.StatusText(status), Code: code, Title: title, Detail: detail}
}

// RenderError writes a single error.
func RenderError(w http.ResponseWriter, status int, code, title, detail string) {
	RenderErrors(w, status, []ErrorObject{errorObject(status, code, title, detail)})
}

// RenderErrorMeta writes a single error with top-level meta, used to tell
// the client where to go next.
func RenderErrorMeta(w http.ResponseWriter, status int, code, title, detail string, meta Meta) {
	Render(w, status, ErrorDocument{Errors: []ErrorObject{errorObject(status, code, title, detail)}, Meta: meta})
}

// RenderErrors writes several errors, typically one per invalid field.
func RenderErrors(w http.ResponseWriter, status int, errs []ErrorObject) {
	Render(w, status, ErrorDocument{Errors: errs})
}
