package models

import "encoding/json"

// Optional distinguishes a field that was absent from the payload from one that
// was sent with its zero value.
type Optional[T any] struct {
	Value   T
	Present bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Present: true}
}

// ApplyTo overwrites *dst when the value is present.
func (o Optional[T]) ApplyTo(dst *T) {
	if o.Present {
		*dst = o.Value
	}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
