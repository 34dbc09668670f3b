package magazord

// ValidationResult is a structured pass/fail with reasons. Errors fail the
// record; warnings are surfaced for operator visibility but never block
// delivery. Validation never panics: nil records produce a failed result,
// not a crash.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func resultFor(errs, warns []string) ValidationResult {
	return ValidationResult{Valid: len(errs) == 0, Errors: errs, Warnings: warns}
}

// ValidateCart checks that a cart carries its mandatory identifying fields.
func ValidateCart(c *Cart) ValidationResult {
	if c == nil {
		return resultFor([]string{"cart is nil"}, nil)
	}
	var errs []string
	if c.ID == 0 {
		errs = append(errs, "cart has no id")
	}
	if c.Status == 0 {
		errs = append(errs, "cart has no status")
	}
	return resultFor(errs, nil)
}

// ValidateOrder checks that an order carries its mandatory identifying
// fields. A missing item list (order-level or nested in a tracking
// reference) is a warning, not an error: the upstream delivers itemless
// orders and the canonical event renders them with an empty item list.
func ValidateOrder(o *Order) ValidationResult {
	if o == nil {
		return resultFor([]string{"order is nil"}, nil)
	}
	var errs, warns []string
	if o.ID == 0 && o.Code == "" {
		errs = append(errs, "order has no id or code")
	}
	if o.PersonID == 0 {
		errs = append(errs, "order has no linked person")
	}
	items := o.Items
	if len(items) == 0 && len(o.TrackingRefs) > 0 {
		items = o.TrackingRefs[0].Items
	}
	if len(items) == 0 {
		warns = append(warns, "order has no items")
	}
	return resultFor(errs, warns)
}

// ValidatePerson checks the person's identifying fields and the contact
// gate: a person reachable by neither email nor phone is a validation
// failure (the same gate the Aggregator enforces as a hard stop).
func ValidatePerson(p *Person) ValidationResult {
	if p == nil {
		return resultFor([]string{"person is nil"}, nil)
	}
	var errs []string
	if p.ID == 0 {
		errs = append(errs, "person has no id")
	}
	if p.Name == "" {
		errs = append(errs, "person has no name")
	}
	if !p.HasContactChannel() {
		errs = append(errs, "person has neither email nor phone (required for CRM delivery)")
	}
	return resultFor(errs, nil)
}

// ValidateBundle validates a collected aggregate. The cart is validated
// only when present (the order flow has none).
func ValidateBundle(b *Bundle) ValidationResult {
	if b == nil {
		return resultFor([]string{"bundle is nil"}, nil)
	}
	var errs, warns []string
	if b.Cart != nil {
		cart := ValidateCart(b.Cart)
		errs = append(errs, cart.Errors...)
		warns = append(warns, cart.Warnings...)
	}
	order := ValidateOrder(b.Order)
	errs = append(errs, order.Errors...)
	warns = append(warns, order.Warnings...)
	person := ValidatePerson(b.Person)
	errs = append(errs, person.Errors...)
	warns = append(warns, person.Warnings...)
	return resultFor(errs, warns)
}
