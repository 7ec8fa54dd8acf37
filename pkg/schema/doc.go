// Package schema describes the shape of an actor's context.
//
// A Schema maps field names to types. It is used three ways: to validate the context
// handed to CreateActor, to derive the columns of flattened storage backends, and to
// normalize the values those backends decode back into canonical Go types.
//
//	s := schema.Schema{
//	    "count": schema.Int(),
//	    "name":  schema.Nullable(schema.String()),
//	    "tags":  schema.Slice(schema.String()),
//	}
//
//	if err := schema.Validate(s, map[string]any{"count": 0}); err != nil {
//	    // *schema.AggregateError listing every failing field
//	}
//
// Schemas can also be parsed from type strings, as definition files declare them:
//
//	s, err := schema.ParseTypeMap(map[string]string{"count": "int", "name": "?string"})
//
// Field names may not collide with SystemFields; CheckDisjoint reports such schemas with
// domain.ErrConfiguration.
package schema
