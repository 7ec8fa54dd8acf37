package dsl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/transito/pkg/domain"
)

// Typed adapts an action working on structs to a domain.Action.
//
// The context map is decoded into C and the payload into P (matching `json` tags, with
// weak numeric conversion). The returned C goes back through encoding/json, so the
// context only ever holds JSON values (numbers become float64) and fields tagged
// `json:"-"` are not persisted.
func Typed[C, P any](fn func(ctx context.Context, current C, payload P) (C, error)) domain.Action {
	return func(ctx context.Context, current map[string]any, payload any) (map[string]any, error) {
		var c C
		if err := decode(current, &c); err != nil {
			return nil, fmt.Errorf("decode context: %w", err)
		}
		var p P
		if payload != nil {
			if err := decode(payload, &p); err != nil {
				return nil, fmt.Errorf("decode payload: %w", err)
			}
		}

		next, err := fn(ctx, c, p)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode context: %w", err)
		}
		out := map[string]any{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("encode context: %w", err)
		}
		return out, nil
	}
}

func decode(in, out any) error {
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
