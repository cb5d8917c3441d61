package invariant

// Violation is the panic value raised by Invariant. Boundaries that turn math
// failures into errors recover it by type.
type Violation string

func (v Violation) Error() string {
	return string(v)
}

func Invariant(condition bool, message string) {
	if !condition {
		panic(Violation(message))
	}
}
