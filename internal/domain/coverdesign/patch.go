package coverdesign

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

var validate = validator.New()

// Patch updates descriptive fields only; file, version and status are
// changed through their own operations.
type Patch struct {
	Title             *string
	Description       *string
	DesignConcept     *string
	ColorScheme       *string
	Style             *string
	TargetAudience    *string
	DesignNotes       *string
	DesignerName      *string
	DesignerEmail     *string
	DesignerPortfolio *string
}

func (p Patch) IsEmpty() bool {
	for _, f := range p.fields() {
		if f.value != nil {
			return false
		}
	}
	return true
}

type patchField struct {
	value  *string
	target func(d *Design) *string
}

func (p Patch) fields() []patchField {
	return []patchField{
		{p.Title, func(d *Design) *string { return &d.Title }},
		{p.Description, func(d *Design) *string { return &d.Description }},
		{p.DesignConcept, func(d *Design) *string { return &d.DesignConcept }},
		{p.ColorScheme, func(d *Design) *string { return &d.ColorScheme }},
		{p.Style, func(d *Design) *string { return &d.Style }},
		{p.TargetAudience, func(d *Design) *string { return &d.TargetAudience }},
		{p.DesignNotes, func(d *Design) *string { return &d.DesignNotes }},
		{p.DesignerName, func(d *Design) *string { return &d.DesignerName }},
		{p.DesignerEmail, func(d *Design) *string { return &d.DesignerEmail }},
		{p.DesignerPortfolio, func(d *Design) *string { return &d.DesignerPortfolio }},
	}
}

// Apply writes the present fields onto d.
func (d *Design) Apply(p Patch, now time.Time) error {
	if p.IsEmpty() {
		return apperrors.ErrNoValidFields
	}
	if p.DesignerEmail != nil && strings.TrimSpace(*p.DesignerEmail) != "" {
		if err := validate.Var(strings.TrimSpace(*p.DesignerEmail), "email"); err != nil {
			return apperrors.ErrInvalidParams.WithFields(map[string]string{"designer_email": "must be a valid email address"})
		}
	}
	for _, f := range p.fields() {
		if f.value != nil {
			*f.target(d) = strings.TrimSpace(*f.value)
		}
	}
	d.UpdatedAt = now
	return nil
}
