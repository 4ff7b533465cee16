package board

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks the
// layer stack or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks composition
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Subject  string             // layer, via or hole name (empty if board-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Subject, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether there is no blocking finding.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs every structural and geometric check on b and returns the
// findings. It never modifies the board.
func Validate(b *Board) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateOutline(b)...)
	errs = append(errs, validateLayers(b)...)
	errs = append(errs, validateVias(b)...)
	errs = append(errs, validateHoles(b)...)
	return errs
}

// ValidateAll runs Validate and separates errors from warnings.
func ValidateAll(b *Board) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(b) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

// validateOutline checks that the board has an outline with area.
func validateOutline(b *Board) []ValidationError {
	if b.Outline == nil || b.Outline.Outer == nil {
		return []ValidationError{{Message: "board has no outline", Severity: SeverityError}}
	}
	o := b.Outline.Outer
	if !o.Round && len(o.Points) < 3 {
		return []ValidationError{{
			Message:  fmt.Sprintf("outline has %d points, need at least 3", len(o.Points)),
			Severity: SeverityError,
		}}
	}
	if o.SignedArea() == 0 {
		return []ValidationError{{Message: "outline has zero area", Severity: SeverityError}}
	}
	return nil
}

// validateLayers checks thicknesses, names and that copper exists.
func validateLayers(b *Board) []ValidationError {
	var errs []ValidationError

	if len(b.Layers) == 0 {
		return append(errs, ValidationError{Message: "board has no layers", Severity: SeverityError})
	}
	if len(b.CopperIndices()) == 0 {
		errs = append(errs, ValidationError{Message: "board has no copper layer", Severity: SeverityWarning})
	}

	seen := make(map[string]bool)
	for i, l := range b.Layers {
		subject := l.Name
		if subject == "" {
			subject = fmt.Sprintf("layer %d", i)
			errs = append(errs, ValidationError{Subject: subject, Message: "layer has no name", Severity: SeverityError})
		} else if seen[l.Name] {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  "duplicate layer name",
				Severity: SeverityError,
			})
		}
		seen[l.Name] = true

		if l.Thickness <= 0 {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  fmt.Sprintf("thickness is %.4f, must be positive", l.Thickness),
				Severity: SeverityError,
			})
		}
		if l.Kind != Dielectric && l.Pieces.Empty() {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  fmt.Sprintf("%s layer has no geometry", l.Kind),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateVias checks drill and pad sizes and that spans reference copper.
func validateVias(b *Board) []ValidationError {
	var errs []ValidationError

	for i, v := range b.Vias {
		subject := v.Name
		if subject == "" {
			subject = fmt.Sprintf("via %d", i)
		}
		if v.Drill <= 0 {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  fmt.Sprintf("drill is %.4f, must be positive", v.Drill),
				Severity: SeverityError,
			})
		}
		if wall := 2 * b.BarrelRadius(v); v.Pad <= wall {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  fmt.Sprintf("pad %.4f does not exceed plated drill %.4f", v.Pad, wall),
				Severity: SeverityError,
			})
		}
		top, bottom, err := b.Span(v)
		if err != nil {
			errs = append(errs, ValidationError{Subject: subject, Message: err.Error(), Severity: SeverityError})
			continue
		}
		if top == bottom {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  "via starts and ends on the same copper layer",
				Severity: SeverityWarning,
			})
		}
		if b.Outline != nil && b.Outline.Outer != nil && !b.Outline.ContainsDisc(v.At, v.Pad/2) {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  fmt.Sprintf("pad at (%.3f, %.3f) is not inside the outline", v.At.X, v.At.Y),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateHoles checks that unplated holes have a size and lie inside the
// outline.
func validateHoles(b *Board) []ValidationError {
	var errs []ValidationError

	for i, h := range b.Holes {
		subject := h.Name
		if subject == "" {
			subject = fmt.Sprintf("hole %d", i)
		}
		if h.Drill <= 0 {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  fmt.Sprintf("drill is %.4f, must be positive", h.Drill),
				Severity: SeverityError,
			})
			continue
		}
		if b.Outline != nil && b.Outline.Outer != nil && !b.Outline.ContainsDisc(h.At, h.Drill/2) {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  fmt.Sprintf("hole at (%.3f, %.3f) is not inside the outline", h.At.X, h.At.Y),
				Severity: SeverityError,
			})
		}
	}
	return errs
}
