// Package validation applies partial JSON payloads to domain structs and
// reports the first offending field.
//
//	patch, err := validation.ParsePatch(body)
//	if err := patch.OptionalDate("expirationDate", &item.ExpirationDate); err != nil {
//		// err is a *validation.FieldError naming "expirationDate"
//	}
package validation
