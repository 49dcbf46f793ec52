package structerr

// StructError is implemented by struct-typed errors that carry context (a path,
// a remote identifier) and still need to be matched with errors.Is. Equality is
// type equality: an error of type *MyError is equal to any target that can be
// asserted as *MyError, regardless of the field values.
//
// errors.Is compares struct errors by value by default, which is almost never
// what a caller matching an error kind wants.
type StructError interface {
	error
	Is(target error) bool
}
