package weberr

import "errors"

type fielder interface {
	Fields() map[string]interface{}
}

// Fields merges the fields attached anywhere in err's chain. When a key is
// set twice the outer value wins.
func Fields(err error) (fields map[string]interface{}, ok bool) {
	for ; err != nil; err = errors.Unwrap(err) {
		fe, isFielder := err.(fielder)
		if !isFielder {
			continue
		}

		if fields == nil {
			fields = make(map[string]interface{})
		}
		for k, v := range fe.Fields() {
			if _, set := fields[k]; !set {
				fields[k] = v
			}
		}
	}
	return fields, fields != nil
}

type fieldsError struct {
	error
	fields map[string]interface{}
}

func (e *fieldsError) Fields() map[string]interface{} { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }
