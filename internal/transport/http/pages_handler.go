package http

import (
	"fmt"
	"net/http"
)

// PagesHandler serves the minimal placeholder pages the gate
// redirects to. Real page rendering lives with the frontend; these
// only guarantee the redirect targets exist.
type PagesHandler struct {
	purchaseURL string
}

// NewPagesHandler creates the page handler. purchaseURL points at the
// vendor's license shop and may be empty.
func NewPagesHandler(purchaseURL string) *PagesHandler {
	return &PagesHandler{purchaseURL: purchaseURL}
}

// Root serves the application root placeholder.
func (h *PagesHandler) Root(w http.ResponseWriter, r *http.Request) {
	writePage(w, "Welcome", "<p>You are in.</p>")
}

// LicenseError serves the license-error page.
func (h *PagesHandler) LicenseError(w http.ResponseWriter, r *http.Request) {
	body := "<p>This commercial version requires a valid license key.</p>"
	if h.purchaseURL != "" {
		body += fmt.Sprintf(`<p><a href=%q>Purchase License</a></p>`, h.purchaseURL)
	}
	writePage(w, "License Required", body)
}

// ObtainLicense serves the obtain-license page shown when no key is
// configured at all.
func (h *PagesHandler) ObtainLicense(w http.ResponseWriter, r *http.Request) {
	body := "<p>No license key is configured for this deployment. " +
		"Set one to continue.</p>"
	if h.purchaseURL != "" {
		body += fmt.Sprintf(`<p><a href=%q>Obtain a License</a></p>`, h.purchaseURL)
	}
	writePage(w, "Obtain a License", body)
}

func writePage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1>%s</body></html>",
		title, title, body)
}
