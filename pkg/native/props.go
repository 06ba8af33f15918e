package native

import (
	"fmt"

	"github.com/go-drift/nativerender/pkg/mutation"
)

// AttributeError is one failed setter from ApplyProps.
type AttributeError struct {
	Name string
	Err  error
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("set attribute %q: %v", e.Name, e.Err)
}

func (e *AttributeError) Unwrap() error { return e.Err }

// ApplyProps flattens props and sets each attribute on node in sorted key
// order. A failing setter does not stop the remaining keys; every failure
// is returned.
func ApplyProps(node Node, props mutation.Props) []error {
	flat := props.Flatten()
	var errs []error
	for _, key := range flat.Keys() {
		if err := node.SetAttribute(key, flat[key]); err != nil {
			errs = append(errs, &AttributeError{Name: key, Err: err})
		}
	}
	return errs
}
