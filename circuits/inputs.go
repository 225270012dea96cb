package circuits

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sort"
)

// ErrInvalidInput is returned when a named input bundle does not match the
// layout a circuit expects.
var ErrInvalidInput = errors.New("invalid circuit input")

// NamedInputs is the flat input bundle handed to a proving backend. Values
// are decimal strings, one-dimensional or two-dimensional arrays of decimal
// strings. Signed values are allowed and reduced into the circuit field by
// the assignment.
type NamedInputs map[string]any

// Names returns the sorted keys of the bundle.
func (in NamedInputs) Names() []string {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckNames fails if a name in expected is missing or if the bundle holds a
// name not in expected.
func (in NamedInputs) CheckNames(expected []string) error {
	for _, name := range expected {
		if _, ok := in[name]; !ok {
			return fmt.Errorf("%w: missing field %q", ErrInvalidInput, name)
		}
	}
	for _, name := range in.Names() {
		if !slices.Contains(expected, name) {
			return fmt.Errorf("%w: unexpected field %q", ErrInvalidInput, name)
		}
	}
	return nil
}

// Scalar returns the named single value.
func (in NamedInputs) Scalar(name string) (*big.Int, error) {
	v, ok := in[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ErrInvalidInput, name)
	}
	x, err := toBigInt(v)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidInput, name, err)
	}
	return x, nil
}

// List returns the named array, which must hold exactly n values.
func (in NamedInputs) List(name string, n int) ([]*big.Int, error) {
	v, ok := in[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ErrInvalidInput, name)
	}
	list, err := toList(v)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidInput, name, err)
	}
	if len(list) != n {
		return nil, fmt.Errorf("%w: field %q has %d values, expected %d", ErrInvalidInput, name, len(list), n)
	}
	return list, nil
}

// Matrix returns the named two-dimensional array, which must have exactly
// rows rows of cols values.
func (in NamedInputs) Matrix(name string, rows, cols int) ([][]*big.Int, error) {
	v, ok := in[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ErrInvalidInput, name)
	}
	var raw []any
	switch m := v.(type) {
	case [][]string:
		for _, row := range m {
			raw = append(raw, row)
		}
	case [][]*big.Int:
		for _, row := range m {
			raw = append(raw, row)
		}
	case []any:
		raw = m
	default:
		return nil, fmt.Errorf("%w: field %q: unsupported matrix type %T", ErrInvalidInput, name, v)
	}
	if len(raw) != rows {
		return nil, fmt.Errorf("%w: field %q has %d rows, expected %d", ErrInvalidInput, name, len(raw), rows)
	}
	out := make([][]*big.Int, rows)
	for i, row := range raw {
		list, err := toList(row)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q row %d: %w", ErrInvalidInput, name, i, err)
		}
		if len(list) != cols {
			return nil, fmt.Errorf("%w: field %q row %d has %d values, expected %d",
				ErrInvalidInput, name, i, len(list), cols)
		}
		out[i] = list
	}
	return out, nil
}

func toList(v any) ([]*big.Int, error) {
	switch l := v.(type) {
	case []string:
		out := make([]*big.Int, len(l))
		for i, s := range l {
			x, err := toBigInt(s)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = x
		}
		return out, nil
	case []*big.Int:
		out := make([]*big.Int, len(l))
		for i, x := range l {
			if x == nil {
				return nil, fmt.Errorf("index %d: nil value", i)
			}
			out[i] = new(big.Int).Set(x)
		}
		return out, nil
	case []any:
		out := make([]*big.Int, len(l))
		for i, e := range l {
			x, err := toBigInt(e)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = x
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported list type %T", v)
	}
}

func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case string:
		n, ok := new(big.Int).SetString(x, 10)
		if !ok {
			return nil, fmt.Errorf("not a decimal integer: %q", x)
		}
		return n, nil
	case *big.Int:
		if x == nil {
			return nil, errors.New("nil value")
		}
		return new(big.Int).Set(x), nil
	case int:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case float64:
		// JSON numbers decoded into any
		if x != float64(int64(x)) {
			return nil, fmt.Errorf("not an integer: %v", x)
		}
		return big.NewInt(int64(x)), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
