// Package requirement captures a buyer's need in two steps: free text, then
// structured details with attachments.
package requirement

import (
	"errors"
	"strings"

	"github.com/shinyyama/hoko/internal/catalog"
	"github.com/shinyyama/hoko/internal/session"
)

var ErrEmptyNeed = errors.New("product requirement is empty")

// Details is the structured form of step two.
type Details struct {
	Category  string `json:"category"`
	Brand     string `json:"brand"`
	Quantity  int    `json:"quantity"`
	Unit      string `json:"unit"`
	Fragrance string `json:"fragrance"`
	Details   string `json:"details"`
}

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, k := range []string{"category", "brand", "quantity", "unit"} {
		if msg, ok := e[k]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

func Validate(d Details) FieldErrors {
	errs := FieldErrors{}
	if !catalog.IsCategory(d.Category) {
		errs["category"] = "Please select a category"
	}
	if strings.TrimSpace(d.Brand) == "" {
		errs["brand"] = "Please enter brand or make"
	}
	if d.Quantity < 1 {
		errs["quantity"] = "Please enter valid quantity"
	}
	if d.Unit != "" && !catalog.IsUnit(d.Unit) {
		errs["unit"] = "Please select a unit"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Submission is handed to the post workflow; capture never talks to the
// backend itself.
type Submission struct {
	Draft session.Draft
	Files []File
}

// Capture writes the draft into the session store and keeps the pending
// attachments and speech state of the capture screens.
type Capture struct {
	store       *session.Store
	Attachments Attachments
	Speech      Transcript
}

func NewCapture(store *session.Store) *Capture {
	return &Capture{store: store}
}

// SubmitNeed stores the free text as the product name.
func (c *Capture) SubmitNeed(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyNeed
	}
	c.Speech.Stop()
	d := c.store.Draft()
	d.ProductName = text
	c.store.SetDraft(d)
	return nil
}

// ShowFragrance reports whether the fragrance field belongs on the form.
func (c *Capture) ShowFragrance() bool {
	return catalog.ShowsFragrance(c.store.Draft().ProductName)
}

// SubmitDetails validates step two and returns the assembled requirement.
// The draft is updated even when validation fails so the form keeps input.
func (c *Capture) SubmitDetails(in Details) (*Submission, error) {
	d := c.store.Draft()
	if d.ProductName == "" {
		return nil, ErrEmptyNeed
	}
	in.Brand = strings.TrimSpace(in.Brand)
	in.Details = strings.TrimSpace(in.Details)
	if in.Unit == "" {
		in.Unit = catalog.DefaultUnit
	}
	if !catalog.ShowsFragrance(d.ProductName) {
		in.Fragrance = ""
	}
	d.Category = in.Category
	d.Brand = in.Brand
	d.Quantity = in.Quantity
	d.Unit = in.Unit
	d.Fragrance = in.Fragrance
	d.Details = in.Details
	c.store.SetDraft(d)

	if errs := Validate(in); errs != nil {
		return nil, errs
	}
	return &Submission{Draft: d, Files: c.Attachments.Files()}, nil
}

// Reset clears the draft and the pending files.
func (c *Capture) Reset() {
	c.store.ResetDraft()
	c.Attachments.Reset()
	c.Speech.Stop()
}
