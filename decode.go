package transito

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeContext decodes an actor's context into a struct. Fields are matched by their
// `json` tag (or name) and numeric types are converted, so the result does not depend on
// how the backend decoded the values.
func DecodeContext[T any](a *Actor) (T, error) {
	var out T
	if err := decodeMap(a.snap.Context, &out); err != nil {
		return out, fmt.Errorf("decode context of actor %q: %w", a.ID(), err)
	}
	return out, nil
}

func decodeMap(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
