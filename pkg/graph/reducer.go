package graph

import (
	"fmt"
	"slices"
)

// Reducer is the merge policy for a single state field.
type Reducer struct {
	name      string
	exclusive bool
	reduce    func(current, update any) (any, error)
}

// Name identifies the policy in errors and logs.
func (r Reducer) Name() string {
	return r.name
}

// Replace overwrites the current value. Replace is not commutative, so two
// stages in the same step writing the same replace field is an error.
func Replace() Reducer {
	return Reducer{
		name:      "replace",
		exclusive: true,
		reduce: func(_, update any) (any, error) {
			return update, nil
		},
	}
}

// Append concatenates into a []T. An update may be a single T or a []T.
// The result never aliases the backing array of an earlier snapshot.
func Append[T any]() Reducer {
	return Reducer{
		name: "append",
		reduce: func(current, update any) (any, error) {
			var base []T
			if current != nil {
				c, ok := current.([]T)
				if !ok {
					return nil, fmt.Errorf("%w: have %T, want %T", ErrFieldType, current, base)
				}
				base = slices.Clip(c)
			}

			switch u := update.(type) {
			case []T:
				return append(base, u...), nil
			case T:
				return append(base, u), nil
			default:
				return nil, fmt.Errorf("%w: cannot append %T to %T", ErrFieldType, update, base)
			}
		},
	}
}

// Custom wraps fn as a shared-write policy. fn must be associative and
// commutative since updates from one step may arrive in any order.
func Custom(name string, fn func(current, update any) (any, error)) Reducer {
	return Reducer{name: name, reduce: fn}
}
